package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

var customerCols = []string{
	"id", "business_id", "first_name", "last_name", "email", "phone", "tags", "notes", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func TestConditions(t *testing.T) {
	cond := scoped("business_id", 3)
	cond.search("ann", "first_name", "email")
	cond.add("$%d = ANY(tags)", "vip")
	cond.raw("NOT is_group")

	assert.Equal(t,
		" WHERE business_id = $1 AND (first_name ILIKE $2 OR email ILIKE $2) AND $3 = ANY(tags) AND NOT is_group",
		cond.where())
	assert.Equal(t, []interface{}{3, "%ann%", "vip"}, cond.args)

	limit, args := cond.page(utils.NewPage(2, 10))
	assert.Equal(t, " LIMIT $4 OFFSET $5", limit)
	assert.Equal(t, []interface{}{3, "%ann%", "vip", 10, 10}, args)
	assert.Len(t, cond.args, 3)
}

func TestConditions_SearchEscapesWildcards(t *testing.T) {
	cond := scoped("business_id", 3)
	cond.search(`50%_off\`, "name")
	assert.Equal(t, " WHERE business_id = $1 AND (name ILIKE $2)", cond.where())
	assert.Equal(t, []interface{}{3, `%50\%\_off\\%`}, cond.args)

	cond = scoped("business_id", 3)
	cond.search("", "name")
	assert.Equal(t, " WHERE business_id = $1", cond.where())
}

func TestCustomerRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM customers WHERE business_id = $1`)).
		WithArgs(7, "%ann%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
		WithArgs(7, "%ann%", 20, 0).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(1, 7, "Ann", "Lee", "ann@example.com", "", []byte("{vip,beta}"), "", now, now))

	list, total, err := repo.List(context.Background(), 7, ListFilter{Search: "ann", Page: utils.NewPage(1, 20)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, pq.StringArray{"vip", "beta"}, list[0].Tags)
}

func TestCustomerRepository_InsertIfAbsent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (business_id, LOWER(email)) DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))

	inserted, err := repo.InsertIfAbsent(context.Background(), &models.Customer{BusinessID: 1, Email: "a@b.co"})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestCustomerRepository_ErrorMapping(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM customers WHERE business_id = $1 AND id = $2`)).
		WithArgs(1, 99).
		WillReturnRows(sqlmock.NewRows(customerCols))
	_, err := repo.GetByID(context.Background(), 1, 99)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO customers`)).
		WillReturnError(&pq.Error{Code: "23505"})
	err = repo.Create(context.Background(), &models.Customer{BusinessID: 1, Email: "a@b.co"})
	assert.ErrorIs(t, err, utils.ErrDuplicate)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM customers`)).
		WithArgs(1, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 1, 5), utils.ErrNotFound)
}

func TestCourseRepository_ToggleCompletion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM content_completions`)).
		WithArgs(4, 12).
		WillReturnRows(sqlmock.NewRows([]string{"content_id"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO content_completions`)).
		WithArgs(4, 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	done, err := repo.ToggleCompletion(context.Background(), 4, 12)
	require.NoError(t, err)
	assert.True(t, done)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM content_completions`)).
		WithArgs(4, 12).
		WillReturnRows(sqlmock.NewRows([]string{"content_id"}).AddRow(12))
	mock.ExpectCommit()

	done, err = repo.ToggleCompletion(context.Background(), 4, 12)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestInvoiceRepository_CreateNumbersUnderLock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvoiceRepository(db)
	now := time.Now()

	inv := &models.Invoice{
		BusinessID: 3,
		CustomerID: 8,
		Currency:   "USD",
		Status:     models.InvoiceDraft,
		IssueDate:  now,
		DueDate:    now.AddDate(0, 0, 14),
		Subtotal:   2000,
		Total:      2000,
		Items: []models.InvoiceItem{
			{Description: "Workshop", Quantity: 2, UnitPrice: 1000, Amount: 2000},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(MAX(CAST(SUBSTRING(number FROM 5) AS INT)), 0) + 1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO invoices`)).
		WithArgs(3, 8, "INV-000007", "USD", "draft", sqlmock.AnyArg(), sqlmock.AnyArg(),
			0.0, int64(2000), int64(0), int64(2000), "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(41, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO invoice_items`)).
		WithArgs(41, "Workshop", 2, int64(1000), int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(90))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), inv))
	assert.Equal(t, 41, inv.ID)
	assert.Equal(t, "INV-000007", inv.Number)
	assert.Equal(t, 41, inv.Items[0].InvoiceID)
	assert.Equal(t, 90, inv.Items[0].ID)
}

func TestInvoiceRepository_SetStatusRejectsWrongState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE invoices SET status = $1, updated_at = NOW(), sent_at = NOW()`)).
		WithArgs("sent", 1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), 1, 2, models.InvoiceSent, models.InvoiceDraft)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestChatRepository_CreateMessageTouchesChat(t *testing.T) {
	db, mock := newMock(t)
	repo := NewChatRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
		WithArgs(5, "user", 2, "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE chats SET last_message_at = $1`)).
		WithArgs(now, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg := &models.Message{ChatID: 5, SenderType: models.SenderUser, SenderID: 2, Body: "hello"}
	require.NoError(t, repo.CreateMessage(context.Background(), msg))
	assert.Equal(t, 11, msg.ID)
}

func TestChatRepository_AddMember(t *testing.T) {
	db, mock := newMock(t)
	repo := NewChatRepository(db)
	joined := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	customerID := 8

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO chat_members (chat_id, user_id, customer_id)`)).
		WithArgs(5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(joined))

	m := &models.ChatMember{ChatID: 5, CustomerID: &customerID}
	require.NoError(t, repo.AddMember(context.Background(), m))
	assert.Equal(t, joined, m.JoinedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO chat_members`)).
		WillReturnError(&pq.Error{Code: "23505"})
	err := repo.AddMember(context.Background(), &models.ChatMember{ChatID: 5, CustomerID: &customerID})
	assert.ErrorIs(t, err, utils.ErrDuplicate)
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO payments`)).
		WithArgs(3, 8, sqlmock.AnyArg(), "PAY-1", int64(15000), "IDR", "transfer", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(21, now, now))

	p := &models.Payment{
		BusinessID: 3, CustomerID: 8, Reference: "PAY-1", Amount: 15000,
		Currency: "IDR", Method: "transfer", Status: models.PaymentPending,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, 21, p.ID)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO payments`)).
		WillReturnError(&pq.Error{Code: "23505"})
	err := repo.Create(context.Background(), &models.Payment{BusinessID: 3, Reference: "PAY-1"})
	assert.ErrorIs(t, err, utils.ErrDuplicate)
}

func TestTicketRepository_CreateTier(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ticket_tiers (ticket_id, name, quantity, sold, prices)`)).
		WithArgs(4, "VIP", 50, 0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))

	tr := &models.TicketTier{TicketID: 4, Name: "VIP", Quantity: 50}
	require.NoError(t, repo.CreateTier(context.Background(), tr))
	assert.Equal(t, 9, tr.ID)
	assert.Equal(t, now, tr.CreatedAt)
}

func TestChatRepository_ListAttachesLatestMessage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewChatRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM chats`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY COALESCE(last_message_at, created_at) DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "business_id", "name", "is_group", "customer_id", "last_message_at", "created_at", "updated_at",
		}).
			AddRow(1, 1, "Team", true, nil, now, now, now).
			AddRow(2, 1, "Ann", false, 8, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT ON (chat_id)`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "chat_id", "sender_type", "sender_id", "body", "created_at", "updated_at",
		}).AddRow(30, 1, "user", 2, "latest", now, now))

	list, total, err := repo.List(context.Background(), 1, ListFilter{Page: utils.NewPage(1, 20)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	require.Len(t, list[0].Messages, 1)
	assert.Equal(t, "latest", list[0].Messages[0].Body)
	assert.Empty(t, list[1].Messages)
}

func TestWebhookRepository_GetPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs(5, 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "business_id", "event", "payload", "attempt", "http_status", "response_body",
			"is_delivered", "created_at", "next_retry_at",
		}).AddRow(1, 2, models.EventInvoicePaid, []byte(`{"id":1}`), 1, 500, "boom", false, now, now))

	list, err := repo.GetPending(context.Background(), 5, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"id":1}`, string(list[0].Payload))
	require.NotNil(t, list[0].HTTPStatus)
	assert.Equal(t, 500, *list[0].HTTPStatus)
}

func TestWebhookRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO webhook_deliveries`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, now))

	d := &models.WebhookDelivery{BusinessID: 2, Event: models.EventPaymentSuccessful, Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, 3, d.ID)
}

func TestBusinessRepository_CreateRollsBackOnMembershipFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBusinessRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO businesses`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO business_members`)).
		WithArgs(9, 4, "owner").
		WillReturnError(&pq.Error{Code: "23503", Message: "user missing"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Business{Name: "Acme", Slug: "acme"}, 4)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}
