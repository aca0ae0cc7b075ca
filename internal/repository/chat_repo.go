package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const (
	chatColumns    = `id, business_id, name, is_group, customer_id, last_message_at, created_at, updated_at`
	messageColumns = `id, chat_id, sender_type, sender_id, body, created_at, updated_at`
)

// ChatRepository provides data access for chats, members and messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// List returns a page of chats, most recently active first. Each chat
// carries its latest message as Messages[0].
func (r *ChatRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Chat, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "name")
	switch f.Kind {
	case "group":
		cond.raw("is_group")
	case "direct":
		cond.raw("NOT is_group")
	}
	if f.CustomerID > 0 {
		cond.add("customer_id = $%d", f.CustomerID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM chats`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Chat{}
	q := `SELECT ` + chatColumns + ` FROM chats` + cond.where() +
		` ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachLatest(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ChatRepository) attachLatest(ctx context.Context, list []models.Chat) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	for i, c := range list {
		ids[i] = int64(c.ID)
	}
	var latest []models.Message
	err := r.db.SelectContext(ctx, &latest, `SELECT DISTINCT ON (chat_id) `+messageColumns+`
        FROM messages WHERE chat_id = ANY($1) ORDER BY chat_id, created_at DESC, id DESC`, pq.Array(ids))
	if err != nil {
		return err
	}
	byChat := make(map[int]models.Message, len(latest))
	for _, m := range latest {
		byChat[m.ChatID] = m
	}
	for i := range list {
		if m, ok := byChat[list[i].ID]; ok {
			list[i].Messages = []models.Message{m}
		}
	}
	return nil
}

// Get returns a chat of the business.
func (r *ChatRepository) Get(ctx context.Context, businessID, id int) (*models.Chat, error) {
	var c models.Chat
	err := r.db.GetContext(ctx, &c, `SELECT `+chatColumns+` FROM chats WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "chat")
	}
	return &c, nil
}

// FindDirect returns the one-to-one chat with a customer.
func (r *ChatRepository) FindDirect(ctx context.Context, businessID, customerID int) (*models.Chat, error) {
	var c models.Chat
	err := r.db.GetContext(ctx, &c, `SELECT `+chatColumns+` FROM chats
        WHERE business_id = $1 AND customer_id = $2 AND NOT is_group ORDER BY id ASC LIMIT 1`, businessID, customerID)
	if err != nil {
		return nil, mapErr(err, "direct chat")
	}
	return &c, nil
}

// Create inserts a chat together with its initial members.
func (r *ChatRepository) Create(ctx context.Context, c *models.Chat, members []models.ChatMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `INSERT INTO chats (business_id, name, is_group, customer_id)
        VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		c.BusinessID, c.Name, c.IsGroup, c.CustomerID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return mapErr(err, "chat")
	}
	for i := range members {
		members[i].ChatID = c.ID
		if err := insertMember(ctx, tx, &members[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddMember adds a user or customer to a chat.
func (r *ChatRepository) AddMember(ctx context.Context, m *models.ChatMember) error {
	return insertMember(ctx, r.db, m)
}

func insertMember(ctx context.Context, q sqlx.QueryerContext, m *models.ChatMember) error {
	err := q.QueryRowxContext(ctx, `INSERT INTO chat_members (chat_id, user_id, customer_id)
        VALUES ($1, $2, $3) RETURNING joined_at`, m.ChatID, m.UserID, m.CustomerID).Scan(&m.JoinedAt)
	return mapErr(err, "chat member")
}

// Members lists the participants of a chat.
func (r *ChatRepository) Members(ctx context.Context, chatID int) ([]models.ChatMember, error) {
	list := []models.ChatMember{}
	err := r.db.SelectContext(ctx, &list,
		`SELECT chat_id, user_id, customer_id, joined_at FROM chat_members WHERE chat_id = $1 ORDER BY joined_at ASC`, chatID)
	return list, err
}

// Messages returns the latest limit messages before beforeID (0 for newest)
// in ascending order.
func (r *ChatRepository) Messages(ctx context.Context, chatID, beforeID, limit int) ([]models.Message, error) {
	cond := &conditions{}
	cond.add("chat_id = $%d", chatID)
	if beforeID > 0 {
		cond.add("id < $%d", beforeID)
	}
	args := append(cond.args, limit)
	list := []models.Message{}
	q := fmt.Sprintf(`SELECT * FROM (
            SELECT %s FROM messages%s ORDER BY created_at DESC, id DESC LIMIT $%d
        ) m ORDER BY created_at ASC, id ASC`, messageColumns, cond.where(), len(args))
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateMessage inserts a message and bumps the chat's last activity.
func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_type, sender_id, body)
        VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		m.ChatID, m.SenderType, m.SenderID, m.Body,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return mapErr(err, "message")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chats SET last_message_at = $1, updated_at = NOW() WHERE id = $2`, m.CreatedAt, m.ChatID); err != nil {
		return err
	}
	return tx.Commit()
}
