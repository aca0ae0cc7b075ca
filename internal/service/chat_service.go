package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GTDGit/gtd_dashboard/internal/chat"
	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

type chatStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Chat, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Chat, error)
	FindDirect(ctx context.Context, businessID, customerID int) (*models.Chat, error)
	Create(ctx context.Context, c *models.Chat, members []models.ChatMember) error
	AddMember(ctx context.Context, m *models.ChatMember) error
	Members(ctx context.Context, chatID int) ([]models.ChatMember, error)
	Messages(ctx context.Context, chatID, beforeID, limit int) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error
}

type memberLookup interface {
	GetMembership(ctx context.Context, businessID, userID int) (*models.Membership, error)
}

// ChatService runs chat threads, keeping a warm thread cache per business
// and pushing events to connected dashboards.
type ChatService struct {
	chats     chatStore
	customers customerStore
	members   memberLookup
	cache     *chat.Registry
	notifier  sse.ChatNotifier
}

// NewChatService constructs a ChatService.
func NewChatService(chats chatStore, customers customerStore, members memberLookup, cache *chat.Registry, notifier sse.ChatNotifier) *ChatService {
	return &ChatService{chats: chats, customers: customers, members: members, cache: cache, notifier: notifier}
}

// SendMessageRequest posts a message into a chat.
type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

// CreateGroupRequest creates a group chat.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	UserIDs     []int  `json:"userIds"`
	CustomerIDs []int  `json:"customerIds"`
}

// OpenDirectRequest opens the one-to-one chat with a customer.
type OpenDirectRequest struct {
	CustomerID int `json:"customerId" binding:"required"`
}

// AddChatMemberRequest adds exactly one user or customer to a group.
type AddChatMemberRequest struct {
	UserID     *int `json:"userId"`
	CustomerID *int `json:"customerId"`
}

// ChatDetail is a chat with its participants.
type ChatDetail struct {
	models.Chat
	Members []models.ChatMember `json:"members"`
}

// Sender identifies who posts a message.
type Sender struct {
	Type models.SenderType
	ID   int
}

// List fetches a page of threads, merges it into the business cache and
// returns the page in cache order.
func (s *ChatService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Chat, int, error) {
	store := s.cache.For(businessID)
	store.BeginFetch()
	page, total, err := s.chats.List(ctx, businessID, f)
	if err != nil {
		store.FailFetch(nil)
		return nil, 0, err
	}
	store.ApplyFetch(page)

	want := make(map[int]bool, len(page))
	for _, c := range page {
		want[c.ID] = true
	}
	out := make([]models.Chat, 0, len(page))
	for _, c := range store.Threads() {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, total, nil
}

// Cached returns the business's cached threads without touching the database.
func (s *ChatService) Cached(businessID int) []models.Chat {
	return s.cache.For(businessID).Threads()
}

// CacheError returns the last thread fetch error of the business.
func (s *ChatService) CacheError(businessID int) string {
	return s.cache.For(businessID).Err()
}

// Get returns a chat with its members.
func (s *ChatService) Get(ctx context.Context, businessID, id int) (*ChatDetail, error) {
	c, err := s.chats.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	members, err := s.chats.Members(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &ChatDetail{Chat: *c, Members: members}, nil
}

// Messages returns up to limit messages before beforeID, oldest first, and
// merges them into the cache.
func (s *ChatService) Messages(ctx context.Context, businessID, chatID, beforeID, limit int) ([]models.Message, error) {
	if _, err := s.chats.Get(ctx, businessID, chatID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	msgs, err := s.chats.Messages(ctx, chatID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	store := s.cache.For(businessID)
	store.ApplyMessages(chatID, msgs)
	if beforeID == 0 {
		store.SetActive(chatID)
	}
	return msgs, nil
}

// Send stores a message, appends it to the cached thread and pushes it to
// connected dashboards.
func (s *ChatService) Send(ctx context.Context, businessID, chatID int, from Sender, req *SendMessageRequest) (*models.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fmt.Errorf("message body is empty: %w", utils.ErrInvalidInput)
	}
	c, err := s.chats.Get(ctx, businessID, chatID)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{ChatID: c.ID, SenderType: from.Type, SenderID: from.ID, Body: body}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	store := s.cache.For(businessID)
	if _, ok := store.Thread(c.ID); !ok {
		store.Upsert(*c)
	}
	store.AppendMessage(*msg)
	metrics.MessageSent()
	s.notifier.NotifyMessageCreated(businessID, msg)
	return msg, nil
}

// CreateGroup creates a group chat that includes its creator.
func (s *ChatService) CreateGroup(ctx context.Context, businessID, creatorID int, req *CreateGroupRequest) (*models.Chat, error) {
	members := []models.ChatMember{{UserID: intPtr(creatorID)}}
	seenUsers := map[int]bool{creatorID: true}
	for _, id := range req.UserIDs {
		if seenUsers[id] {
			continue
		}
		if _, err := s.members.GetMembership(ctx, businessID, id); err != nil {
			return nil, fmt.Errorf("user %d: %w", id, asInvalid(err))
		}
		seenUsers[id] = true
		members = append(members, models.ChatMember{UserID: intPtr(id)})
	}
	seenCustomers := map[int]bool{}
	for _, id := range req.CustomerIDs {
		if seenCustomers[id] {
			continue
		}
		if _, err := s.customers.GetByID(ctx, businessID, id); err != nil {
			return nil, fmt.Errorf("customer %d: %w", id, asInvalid(err))
		}
		seenCustomers[id] = true
		members = append(members, models.ChatMember{CustomerID: intPtr(id)})
	}

	c := &models.Chat{BusinessID: businessID, Name: strings.TrimSpace(req.Name), IsGroup: true}
	if err := s.chats.Create(ctx, c, members); err != nil {
		return nil, err
	}
	s.cache.For(businessID).Upsert(*c)
	s.notifier.NotifyChatCreated(businessID, c)
	return c, nil
}

// OpenDirect returns the customer's direct chat, creating it on first use.
func (s *ChatService) OpenDirect(ctx context.Context, businessID, userID int, req *OpenDirectRequest) (*models.Chat, bool, error) {
	existing, err := s.chats.FindDirect(ctx, businessID, req.CustomerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, false, err
	}
	cust, err := s.customers.GetByID(ctx, businessID, req.CustomerID)
	if err != nil {
		return nil, false, err
	}
	name := cust.FullName()
	if name == "" {
		name = cust.Email
	}
	c := &models.Chat{BusinessID: businessID, Name: name, CustomerID: intPtr(cust.ID)}
	members := []models.ChatMember{{UserID: intPtr(userID)}, {CustomerID: intPtr(cust.ID)}}
	if err := s.chats.Create(ctx, c, members); err != nil {
		return nil, false, err
	}
	s.cache.For(businessID).Upsert(*c)
	s.notifier.NotifyChatCreated(businessID, c)
	return c, true, nil
}

// AddMember adds a user or customer to a group chat.
func (s *ChatService) AddMember(ctx context.Context, businessID, chatID int, req *AddChatMemberRequest) (*models.ChatMember, error) {
	if (req.UserID == nil) == (req.CustomerID == nil) {
		return nil, fmt.Errorf("exactly one of userId or customerId is required: %w", utils.ErrInvalidInput)
	}
	c, err := s.chats.Get(ctx, businessID, chatID)
	if err != nil {
		return nil, err
	}
	if !c.IsGroup {
		return nil, fmt.Errorf("members can only be added to groups: %w", utils.ErrInvalidState)
	}
	if req.UserID != nil {
		if _, err := s.members.GetMembership(ctx, businessID, *req.UserID); err != nil {
			return nil, fmt.Errorf("user %d: %w", *req.UserID, asInvalid(err))
		}
	} else if _, err := s.customers.GetByID(ctx, businessID, *req.CustomerID); err != nil {
		return nil, fmt.Errorf("customer %d: %w", *req.CustomerID, asInvalid(err))
	}

	m := &models.ChatMember{ChatID: c.ID, UserID: req.UserID, CustomerID: req.CustomerID}
	if err := s.chats.AddMember(ctx, m); err != nil {
		return nil, err
	}
	s.notifier.NotifyMemberAdded(businessID, m)
	return m, nil
}

func intPtr(v int) *int {
	return &v
}

// asInvalid turns a missing reference into invalid input.
func asInvalid(err error) error {
	if errors.Is(err, utils.ErrNotFound) {
		return utils.ErrInvalidInput
	}
	return err
}
