package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Socket actions understood by /v1/chats/ws.
const (
	ActionChatsList       = "chats.list"
	ActionChatsMessages   = "chats.messages"
	ActionMessagesSend    = "messages.send"
	ActionGroupsCreate    = "groups.create"
	ActionGroupsAddMember = "groups.addMember"
)

// Pushed event names.
const (
	EventMessageCreated = "message.created"
	EventChatCreated    = "chat.created"
)

// ErrClosed is returned by calls on a closed Realtime connection.
var ErrClosed = errors.New("realtime connection closed")

// Event is a server push.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// frame is either a reply (ID set) or a pushed event.
type frame struct {
	ID        string          `json:"id"`
	OK        bool            `json:"ok"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

type request struct {
	ID      string      `json:"id"`
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// Realtime is a chat WebSocket session. Calls may be issued concurrently.
type Realtime struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     int
	pending map[string]chan frame
	closed  bool

	events chan Event
	done   chan struct{}
}

// DialRealtime opens the chat WebSocket of the client's business.
func (c *Client) DialRealtime(ctx context.Context) (*Realtime, error) {
	wsURL := c.baseURL + "/v1/chats/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	if c.businessID > 0 {
		header.Set(BusinessHeader, strconv.Itoa(c.businessID))
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	rt := &Realtime{
		conn:    conn,
		pending: make(map[string]chan frame),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

// Events returns pushed events. The channel closes with the connection.
func (r *Realtime) Events() <-chan Event {
	return r.events
}

// Done is closed when the connection ends.
func (r *Realtime) Done() <-chan struct{} {
	return r.done
}

// Call sends one action and decodes the reply data into result.
func (r *Realtime) Call(ctx context.Context, action string, payload, result interface{}) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.seq++
	id := strconv.Itoa(r.seq)
	reply := make(chan frame, 1)
	r.pending[id] = reply
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	out, err := json.Marshal(request{ID: id, Action: action, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", action, err)
	}
	r.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		r.conn.SetWriteDeadline(deadline)
	} else {
		r.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	err = r.conn.WriteMessage(websocket.TextMessage, out)
	r.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", action, err)
	}

	select {
	case f, ok := <-reply:
		if !ok {
			return ErrClosed
		}
		if !f.OK {
			if f.Error != nil {
				return f.Error
			}
			return &APIError{Code: "UNKNOWN", Message: action + " failed"}
		}
		if result != nil && len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, result); err != nil {
				return fmt.Errorf("failed to decode %s reply: %w", action, err)
			}
		}
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session.
func (r *Realtime) Close() error {
	r.writeMu.Lock()
	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	r.writeMu.Unlock()
	return r.conn.Close()
}

func (r *Realtime) readLoop() {
	defer func() {
		r.mu.Lock()
		r.closed = true
		for id, ch := range r.pending {
			close(ch)
			delete(r.pending, id)
		}
		r.mu.Unlock()
		close(r.done)
		close(r.events)
	}()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("realtime connection lost")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn().Err(err).Msg("dropping malformed realtime frame")
			continue
		}

		if f.ID != "" {
			r.mu.Lock()
			ch, ok := r.pending[f.ID]
			r.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}
		if f.Event == "" {
			continue
		}

		select {
		case r.events <- Event{Event: f.Event, Data: f.Data, Timestamp: f.Timestamp}:
		default:
			log.Warn().Str("event", f.Event).Msg("realtime event buffer full, dropping event")
		}
	}
}
