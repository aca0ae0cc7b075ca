package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
}

type fakeBusinesses struct {
	items   map[int]*models.Business
	members map[[2]int]*models.Membership
	nextID  int
}

func newFakeBusinesses(list ...*models.Business) *fakeBusinesses {
	f := &fakeBusinesses{items: map[int]*models.Business{}, members: map[[2]int]*models.Membership{}, nextID: 100}
	for _, b := range list {
		f.items[b.ID] = b
	}
	return f
}

func (f *fakeBusinesses) Create(_ context.Context, b *models.Business, ownerID int) error {
	for _, existing := range f.items {
		if existing.Slug == b.Slug {
			return fmt.Errorf("business: %w", utils.ErrDuplicate)
		}
	}
	f.nextID++
	b.ID = f.nextID
	f.items[b.ID] = b
	f.members[[2]int{b.ID, ownerID}] = &models.Membership{BusinessID: b.ID, UserID: ownerID, Role: models.RoleOwner}
	return nil
}

func (f *fakeBusinesses) GetByID(_ context.Context, id int) (*models.Business, error) {
	b, ok := f.items[id]
	if !ok {
		return nil, notFound("business")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBusinesses) ListForUser(_ context.Context, userID int) ([]repository.BusinessWithRole, error) {
	out := []repository.BusinessWithRole{}
	for key, m := range f.members {
		if key[1] == userID {
			out = append(out, repository.BusinessWithRole{Business: *f.items[key[0]], Role: m.Role})
		}
	}
	return out, nil
}

func (f *fakeBusinesses) Update(_ context.Context, b *models.Business) error {
	cp := *b
	f.items[b.ID] = &cp
	return nil
}

func (f *fakeBusinesses) RotateWebhookSecret(_ context.Context, id int, secret string) error {
	b, ok := f.items[id]
	if !ok {
		return notFound("business")
	}
	b.WebhookSecret = secret
	return nil
}

func (f *fakeBusinesses) GetMembership(_ context.Context, businessID, userID int) (*models.Membership, error) {
	m, ok := f.members[[2]int{businessID, userID}]
	if !ok {
		return nil, notFound("membership")
	}
	return m, nil
}

func (f *fakeBusinesses) AddMember(_ context.Context, m *models.Membership) error {
	f.members[[2]int{m.BusinessID, m.UserID}] = m
	return nil
}

func (f *fakeBusinesses) ListMembers(_ context.Context, businessID int) ([]models.Membership, error) {
	out := []models.Membership{}
	for key, m := range f.members {
		if key[0] == businessID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeCustomers struct {
	items  map[int]*models.Customer
	nextID int
}

func newFakeCustomers(list ...*models.Customer) *fakeCustomers {
	f := &fakeCustomers{items: map[int]*models.Customer{}, nextID: 1000}
	for _, c := range list {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCustomers) emailTaken(businessID int, email string, except int) bool {
	for _, c := range f.items {
		if c.BusinessID == businessID && c.ID != except && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeCustomers) List(_ context.Context, businessID int, _ repository.ListFilter) ([]models.Customer, int, error) {
	out := []models.Customer{}
	for _, c := range f.items {
		if c.BusinessID == businessID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (f *fakeCustomers) All(ctx context.Context, businessID int) ([]models.Customer, error) {
	out, _, _ := f.List(ctx, businessID, repository.ListFilter{})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCustomers) GetByID(_ context.Context, businessID, id int) (*models.Customer, error) {
	c, ok := f.items[id]
	if !ok || c.BusinessID != businessID {
		return nil, notFound("customer")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) Create(_ context.Context, c *models.Customer) error {
	if f.emailTaken(c.BusinessID, c.Email, 0) {
		return fmt.Errorf("customer: %w", utils.ErrDuplicate)
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) InsertIfAbsent(ctx context.Context, c *models.Customer) (bool, error) {
	if f.emailTaken(c.BusinessID, c.Email, 0) {
		return false, nil
	}
	return true, f.Create(ctx, c)
}

func (f *fakeCustomers) Update(_ context.Context, c *models.Customer) error {
	if f.emailTaken(c.BusinessID, c.Email, c.ID) {
		return fmt.Errorf("customer: %w", utils.ErrDuplicate)
	}
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) Delete(_ context.Context, businessID, id int) error {
	c, ok := f.items[id]
	if !ok || c.BusinessID != businessID {
		return notFound("customer")
	}
	delete(f.items, id)
	return nil
}

type dispatched struct {
	BusinessID int
	Event      string
	Data       interface{}
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []dispatched
}

func (f *fakeDispatcher) Dispatch(_ context.Context, businessID int, event string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatched{BusinessID: businessID, Event: event, Data: data})
	return nil
}

func (f *fakeDispatcher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Event
	}
	return out
}

type fakeNotifier struct {
	messages []*models.Message
	chats    []*models.Chat
	members  []*models.ChatMember
	payments []*models.Payment
}

func (f *fakeNotifier) NotifyMessageCreated(_ int, m *models.Message)     { f.messages = append(f.messages, m) }
func (f *fakeNotifier) NotifyChatCreated(_ int, c *models.Chat)           { f.chats = append(f.chats, c) }
func (f *fakeNotifier) NotifyMemberAdded(_ int, m *models.ChatMember)     { f.members = append(f.members, m) }
func (f *fakeNotifier) NotifyPaymentSuccessful(_ int, p *models.Payment) { f.payments = append(f.payments, p) }

type fakeWebhookStore struct {
	created []*models.WebhookDelivery
	updated []models.WebhookDelivery
	pending []models.WebhookDelivery
}

func (f *fakeWebhookStore) Create(_ context.Context, d *models.WebhookDelivery) error {
	d.ID = len(f.created) + 1
	f.created = append(f.created, d)
	return nil
}

func (f *fakeWebhookStore) Update(_ context.Context, d *models.WebhookDelivery) error {
	f.updated = append(f.updated, *d)
	return nil
}

func (f *fakeWebhookStore) GetPending(_ context.Context, maxAttempts, limit int) ([]models.WebhookDelivery, error) {
	out := []models.WebhookDelivery{}
	for _, d := range f.pending {
		if d.Attempt < maxAttempts && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeWebhookStore) ListRecent(_ context.Context, businessID, limit int) ([]models.WebhookDelivery, error) {
	out := []models.WebhookDelivery{}
	for _, d := range f.created {
		if d.BusinessID == businessID && len(out) < limit {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeInvoices struct {
	items    map[int]*models.Invoice
	payments []*models.Payment
	overdue  []models.Invoice
	nextID   int
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{items: map[int]*models.Invoice{}}
}

func (f *fakeInvoices) List(_ context.Context, businessID int, _ repository.ListFilter) ([]models.Invoice, int, error) {
	out := []models.Invoice{}
	for _, inv := range f.items {
		if inv.BusinessID == businessID {
			out = append(out, *inv)
		}
	}
	return out, len(out), nil
}

func (f *fakeInvoices) Get(_ context.Context, businessID, id int) (*models.Invoice, error) {
	inv, ok := f.items[id]
	if !ok || inv.BusinessID != businessID {
		return nil, notFound("invoice")
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoices) Create(_ context.Context, inv *models.Invoice) error {
	f.nextID++
	inv.ID = f.nextID
	inv.Number = repository.InvoiceNumber(f.nextID)
	cp := *inv
	f.items[inv.ID] = &cp
	return nil
}

func (f *fakeInvoices) UpdateDraft(_ context.Context, inv *models.Invoice) error {
	cp := *inv
	f.items[inv.ID] = &cp
	return nil
}

func (f *fakeInvoices) Delete(_ context.Context, _, id int) error {
	delete(f.items, id)
	return nil
}

func (f *fakeInvoices) SetStatus(_ context.Context, businessID, id int, status models.InvoiceStatus, from ...models.InvoiceStatus) error {
	inv, ok := f.items[id]
	if !ok || inv.BusinessID != businessID {
		return notFound("invoice")
	}
	for _, s := range from {
		if inv.Status == s {
			inv.Status = status
			return nil
		}
	}
	return notFound("invoice in state")
}

func (f *fakeInvoices) MarkPaid(_ context.Context, inv *models.Invoice, p *models.Payment) error {
	stored, ok := f.items[inv.ID]
	if !ok || !stored.Status.IsOpen() {
		return notFound("open invoice")
	}
	stored.Status = models.InvoicePaid
	stored.PaidAt = p.PaidAt
	inv.Status = models.InvoicePaid
	inv.PaidAt = p.PaidAt
	p.ID = len(f.payments) + 1
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeInvoices) MarkOverdue(_ context.Context, _ time.Time) ([]models.Invoice, error) {
	return f.overdue, nil
}
