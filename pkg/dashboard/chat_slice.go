package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GTDGit/gtd_dashboard/internal/chat"
	"github.com/GTDGit/gtd_dashboard/internal/models"
)

type chatAPI interface {
	ListChats(ctx context.Context, opts ListOptions) ([]models.Chat, *Pagination, error)
	Messages(ctx context.Context, chatID, before, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID int, body string) (*models.Message, error)
}

// ChatSlice is the client-side chat cache. Fetched pages and pushed events
// are merged into one ordered, duplicate-free thread list.
type ChatSlice struct {
	api   chatAPI
	store *chat.Store
}

// NewChatSlice creates an empty slice backed by api.
func NewChatSlice(api chatAPI) *ChatSlice {
	return &ChatSlice{api: api, store: chat.NewStore()}
}

// Fetch loads one page of threads and merges it into the cache. On failure
// the cached threads are kept and Err reports the failure.
func (s *ChatSlice) Fetch(ctx context.Context, opts ListOptions) (*Pagination, error) {
	s.store.BeginFetch()
	threads, meta, err := s.api.ListChats(ctx, opts)
	if err != nil {
		s.store.FailFetch(err)
		return nil, err
	}
	s.store.ApplyFetch(threads)
	return meta, nil
}

// FetchAll pages through every thread.
func (s *ChatSlice) FetchAll(ctx context.Context, limit int) error {
	for page := 1; ; page++ {
		meta, err := s.Fetch(ctx, ListOptions{Page: page, Limit: limit})
		if err != nil {
			return err
		}
		if meta == nil || page >= meta.TotalPages {
			return nil
		}
	}
}

// Merge adds threads obtained elsewhere, for example over the realtime socket.
func (s *ChatSlice) Merge(threads []models.Chat) {
	s.store.ApplyFetch(threads)
}

// Open selects a thread and loads its newest messages.
func (s *ChatSlice) Open(ctx context.Context, chatID, limit int) ([]models.Message, error) {
	s.store.SetActive(chatID)
	msgs, err := s.api.Messages(ctx, chatID, 0, limit)
	if err != nil {
		return nil, err
	}
	s.store.ApplyMessages(chatID, msgs)
	return s.store.Messages(chatID), nil
}

// Send posts a message and records it locally.
func (s *ChatSlice) Send(ctx context.Context, chatID int, body string) (*models.Message, error) {
	msg, err := s.api.SendMessage(ctx, chatID, body)
	if err != nil {
		return nil, err
	}
	s.store.AppendMessage(*msg)
	return msg, nil
}

// Apply merges a pushed event. Unknown events are ignored.
func (s *ChatSlice) Apply(ev Event) error {
	switch ev.Event {
	case EventMessageCreated:
		var msg models.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			return fmt.Errorf("invalid %s event: %w", ev.Event, err)
		}
		s.store.AppendMessage(msg)
	case EventChatCreated:
		var c models.Chat
		if err := json.Unmarshal(ev.Data, &c); err != nil {
			return fmt.Errorf("invalid %s event: %w", ev.Event, err)
		}
		s.store.Upsert(c)
	}
	return nil
}

// Threads returns the cached threads, most recent first.
func (s *ChatSlice) Threads() []models.Chat { return s.store.Threads() }

// Messages returns the cached messages of a thread, oldest first.
func (s *ChatSlice) Messages(chatID int) []models.Message { return s.store.Messages(chatID) }

// Active returns the opened thread, 0 when none.
func (s *ChatSlice) Active() int { return s.store.Active() }

// Err returns the last fetch failure.
func (s *ChatSlice) Err() string { return s.store.Err() }
