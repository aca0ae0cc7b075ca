package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/chat"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type fakeChats struct {
	chats    map[int]*models.Chat
	members  map[int][]models.ChatMember
	messages map[int][]models.Message
	nextMsg  int
	clock    time.Time
}

func newFakeChats(list ...*models.Chat) *fakeChats {
	f := &fakeChats{
		chats:    map[int]*models.Chat{},
		members:  map[int][]models.ChatMember{},
		messages: map[int][]models.Message{},
		clock:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, c := range list {
		f.chats[c.ID] = c
	}
	return f
}

func (f *fakeChats) List(_ context.Context, businessID int, _ repository.ListFilter) ([]models.Chat, int, error) {
	out := []models.Chat{}
	for _, c := range f.chats {
		if c.BusinessID == businessID {
			out = append(out, *c)
		}
	}
	chat.SortThreads(out)
	return out, len(out), nil
}

func (f *fakeChats) Get(_ context.Context, businessID, id int) (*models.Chat, error) {
	c, ok := f.chats[id]
	if !ok || c.BusinessID != businessID {
		return nil, notFound("chat")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChats) FindDirect(_ context.Context, businessID, customerID int) (*models.Chat, error) {
	for _, c := range f.chats {
		if c.BusinessID == businessID && !c.IsGroup && c.CustomerID != nil && *c.CustomerID == customerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("direct chat")
}

func (f *fakeChats) Create(_ context.Context, c *models.Chat, members []models.ChatMember) error {
	c.ID = len(f.chats) + 1
	c.CreatedAt = f.clock
	cp := *c
	f.chats[c.ID] = &cp
	for _, m := range members {
		m.ChatID = c.ID
		f.members[c.ID] = append(f.members[c.ID], m)
	}
	return nil
}

func (f *fakeChats) AddMember(_ context.Context, m *models.ChatMember) error {
	f.members[m.ChatID] = append(f.members[m.ChatID], *m)
	return nil
}

func (f *fakeChats) Members(_ context.Context, chatID int) ([]models.ChatMember, error) {
	return f.members[chatID], nil
}

func (f *fakeChats) Messages(_ context.Context, chatID, beforeID, limit int) ([]models.Message, error) {
	all := f.messages[chatID]
	out := []models.Message{}
	for _, m := range all {
		if beforeID == 0 || m.ID < beforeID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeChats) CreateMessage(_ context.Context, m *models.Message) error {
	f.nextMsg++
	f.clock = f.clock.Add(time.Minute)
	m.ID = f.nextMsg
	m.CreatedAt = f.clock
	f.messages[m.ChatID] = append(f.messages[m.ChatID], *m)
	at := f.clock
	f.chats[m.ChatID].LastMessageAt = &at
	return nil
}

type chatFixture struct {
	svc      *ChatService
	chats    *fakeChats
	cache    *chat.Registry
	notifier *fakeNotifier
}

func newChatFixture() *chatFixture {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	chats := newFakeChats(
		&models.Chat{ID: 1, BusinessID: 1, Name: "Ada", CustomerID: intPtr(5), CreatedAt: base},
		&models.Chat{ID: 2, BusinessID: 1, Name: "Cohort", IsGroup: true, CreatedAt: base.Add(time.Hour)},
	)
	customers := newFakeCustomers(
		&models.Customer{ID: 5, BusinessID: 1, FirstName: "Ada", Email: "ada@example.com"},
		&models.Customer{ID: 6, BusinessID: 1, Email: "grace@example.com"},
	)
	businesses := newFakeBusinesses(&models.Business{ID: 1})
	businesses.members[[2]int{1, 10}] = &models.Membership{BusinessID: 1, UserID: 10, Role: models.RoleOwner}
	businesses.members[[2]int{1, 11}] = &models.Membership{BusinessID: 1, UserID: 11, Role: models.RoleStaff}

	f := &chatFixture{chats: chats, cache: chat.NewRegistry(), notifier: &fakeNotifier{}}
	f.svc = NewChatService(chats, customers, businesses, f.cache, f.notifier)
	return f
}

func chatIDs(list []models.Chat) []int {
	out := make([]int, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestChatService_ListFillsCache(t *testing.T) {
	f := newChatFixture()

	list, total, err := f.svc.List(context.Background(), 1, repository.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []int{2, 1}, chatIDs(list))
	assert.Equal(t, []int{2, 1}, chatIDs(f.svc.Cached(1)))
	assert.Empty(t, f.svc.CacheError(1))
}

func TestChatService_SendMovesThreadToTop(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	_, _, err := f.svc.List(ctx, 1, repository.ListFilter{})
	require.NoError(t, err)

	msg, err := f.svc.Send(ctx, 1, 1, Sender{Type: models.SenderUser, ID: 10}, &SendMessageRequest{Body: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)

	assert.Equal(t, []int{1, 2}, chatIDs(f.svc.Cached(1)))
	assert.Equal(t, []models.Message{*msg}, f.cache.For(1).Messages(1))
	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, msg.ID, f.notifier.messages[0].ID)
}

func TestChatService_SendValidation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	_, err := f.svc.Send(ctx, 1, 1, Sender{Type: models.SenderUser, ID: 10}, &SendMessageRequest{Body: "   "})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = f.svc.Send(ctx, 2, 1, Sender{Type: models.SenderUser, ID: 10}, &SendMessageRequest{Body: "hi"})
	assert.ErrorIs(t, err, utils.ErrNotFound, "chats are scoped to their business")
}

func TestChatService_MessagesPaging(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.Send(ctx, 1, 2, Sender{Type: models.SenderUser, ID: 10}, &SendMessageRequest{Body: "m"})
		require.NoError(t, err)
	}

	page, err := f.svc.Messages(ctx, 1, 2, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 4, page[0].ID)
	assert.Equal(t, 5, page[1].ID)
	assert.Equal(t, 2, f.cache.For(1).Active())

	older, err := f.svc.Messages(ctx, 1, 2, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, older[0].ID)
	assert.Equal(t, 3, older[1].ID)
}

func TestChatService_OpenDirectReusesThread(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	c, created, err := f.svc.OpenDirect(ctx, 1, 10, &OpenDirectRequest{CustomerID: 5})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, c.ID)

	c, created, err = f.svc.OpenDirect(ctx, 1, 10, &OpenDirectRequest{CustomerID: 6})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "grace@example.com", c.Name)
	assert.Len(t, f.chats.members[c.ID], 2)
	assert.Len(t, f.notifier.chats, 1)
}

func TestChatService_CreateGroup(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, 1, 10, &CreateGroupRequest{Name: "Mentors", UserIDs: []int{10, 11}, CustomerIDs: []int{5, 5}})
	require.NoError(t, err)
	assert.True(t, g.IsGroup)
	assert.Len(t, f.chats.members[g.ID], 3)

	_, err = f.svc.CreateGroup(ctx, 1, 10, &CreateGroupRequest{Name: "Bad", UserIDs: []int{99}})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestChatService_AddMember(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	_, err := f.svc.AddMember(ctx, 1, 2, &AddChatMemberRequest{UserID: intPtr(11), CustomerID: intPtr(5)})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = f.svc.AddMember(ctx, 1, 1, &AddChatMemberRequest{UserID: intPtr(11)})
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	m, err := f.svc.AddMember(ctx, 1, 2, &AddChatMemberRequest{CustomerID: intPtr(6)})
	require.NoError(t, err)
	assert.Equal(t, 2, m.ChatID)
	assert.Len(t, f.notifier.members, 1)
}
