package chat

import (
	"sync"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

// Store is the thread cache of one business. All methods are safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	threads  []models.Chat
	messages map[int][]models.Message
	activeID int
	loading  bool
	err      string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{messages: make(map[int][]models.Message)}
}

// BeginFetch marks a fetch as in flight and clears the previous error.
func (s *Store) BeginFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = ""
}

// ApplyFetch merges a fetched thread batch.
func (s *Store) ApplyFetch(threads []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = MergeThreads(s.threads, threads)
	s.loading = false
}

// FailFetch ends a fetch with an error message. Cached threads are kept.
func (s *Store) FailFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
	} else {
		s.err = "failed to load chats"
	}
}

// ApplyMessages merges a fetched message page of one chat.
func (s *Store) ApplyMessages(chatID int, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[chatID] = MergeMessages(s.messages[chatID], msgs)
}

// AppendMessage records a pushed or sent message. A message ID already held
// for the chat is ignored. It reports whether the message was new.
func (s *Store) AppendMessage(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, added := AppendMessage(s.messages[msg.ChatID], msg)
	if !added {
		return false
	}
	s.messages[msg.ChatID] = list

	for i := range s.threads {
		if s.threads[i].ID == msg.ChatID {
			Touch(&s.threads[i], msg)
			break
		}
	}
	SortThreads(s.threads)
	return true
}

// Upsert inserts or replaces a single thread, for example a newly created group.
func (s *Store) Upsert(c models.Chat) {
	s.ApplyFetch([]models.Chat{c})
}

// SetActive selects the thread shown in detail.
func (s *Store) SetActive(chatID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = chatID
}

// Active returns the selected thread ID, 0 when none.
func (s *Store) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Thread returns a copy of the cached thread.
func (s *Store) Thread(chatID int) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.threads {
		if c.ID == chatID {
			return c, true
		}
	}
	return models.Chat{}, false
}

// Threads returns a copy of the ordered threads.
func (s *Store) Threads() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chat, len(s.threads))
	copy(out, s.threads)
	return out
}

// Messages returns a copy of the chat's messages, oldest first.
func (s *Store) Messages(chatID int) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages[chatID]))
	copy(out, s.messages[chatID])
	return out
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last fetch error, empty when the last fetch succeeded.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Registry holds one Store per business.
type Registry struct {
	mu     sync.Mutex
	stores map[int]*Store
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[int]*Store)}
}

// For returns the business's Store, creating it on first use.
func (r *Registry) For(businessID int) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[businessID]
	if !ok {
		s = NewStore()
		r.stores[businessID] = s
	}
	return s
}
