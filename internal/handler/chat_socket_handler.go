package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxFrameBytes  = 64 << 10
	requestTimeout = 10 * time.Second
)

// Socket actions.
const (
	ActionChatsList       = "chats.list"
	ActionChatsMessages   = "chats.messages"
	ActionMessagesSend    = "messages.send"
	ActionGroupsCreate    = "groups.create"
	ActionGroupsAddMember = "groups.addMember"
)

// SocketRequest is a client frame.
type SocketRequest struct {
	ID      string          `json:"id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// SocketResponse answers the SocketRequest with the same ID.
type SocketResponse struct {
	ID    string           `json:"id"`
	OK    bool             `json:"ok"`
	Data  interface{}      `json:"data,omitempty"`
	Error *utils.ErrorInfo `json:"error,omitempty"`
}

type listPayload struct {
	Search string `json:"search"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

type messagesPayload struct {
	ChatID int `json:"chatId" binding:"required,gte=1"`
	Before int `json:"before" binding:"gte=0"`
	Limit  int `json:"limit" binding:"gte=0"`
}

type sendPayload struct {
	ChatID int    `json:"chatId" binding:"required,gte=1"`
	Body   string `json:"body" binding:"required,max=4000"`
}

type addMemberPayload struct {
	ChatID     int  `json:"chatId" binding:"required,gte=1"`
	UserID     *int `json:"userId"`
	CustomerID *int `json:"customerId"`
}

// ChatSocketHandler serves the chat RPC WebSocket. Each connection also
// receives the business's realtime events.
type ChatSocketHandler struct {
	chats    chatService
	hub      *sse.Hub
	upgrader websocket.Upgrader
}

// NewChatSocketHandler constructs a ChatSocketHandler. Browser origins are
// checked against the same policy as CORS.
func NewChatSocketHandler(chats chatService, hub *sse.Hub, origins *middleware.OriginPolicy) *ChatSocketHandler {
	return &ChatSocketHandler{
		chats: chats,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
	}
}

// socketSession is one connected dashboard.
type socketSession struct {
	conn       *websocket.Conn
	client     *sse.Client
	replies    chan []byte
	done       chan struct{}
	businessID int
	userID     int
}

// Serve handles GET /v1/chats/ws
func (h *ChatSocketHandler) Serve(c *gin.Context) {
	businessID := middleware.BusinessID(c)
	userID := c.GetInt("user_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("failed to upgrade chat websocket")
		return
	}

	clientID := fmt.Sprintf("ws-%d-%s", userID, uuid.New().String()[:8])
	s := &socketSession{
		conn:       conn,
		client:     h.hub.Register(businessID, clientID),
		replies:    make(chan []byte, 16),
		done:       make(chan struct{}),
		businessID: businessID,
		userID:     userID,
	}
	metrics.RealtimeConnected("ws", 1)
	defer metrics.RealtimeConnected("ws", -1)

	go s.writePump()
	h.readPump(c.Request.Context(), s)
}

// readPump answers request frames until the connection closes.
func (h *ChatSocketHandler) readPump(ctx context.Context, s *socketSession) {
	defer func() {
		h.hub.Unregister(s.client)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", s.client.ID).Msg("chat websocket read error")
			}
			return
		}

		var req SocketRequest
		var resp SocketResponse
		if err := json.Unmarshal(frame, &req); err != nil {
			resp = SocketResponse{Error: &utils.ErrorInfo{Code: "INVALID_FRAME", Message: "Frame must be a JSON object"}}
		} else {
			rctx, cancel := context.WithTimeout(ctx, requestTimeout)
			resp = h.dispatch(rctx, s, &req)
			cancel()
		}

		out, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Str("action", req.Action).Msg("failed to marshal socket response")
			continue
		}
		select {
		case s.replies <- out:
		case <-s.done:
			return
		}
	}
}

// writePump serializes replies and hub events onto the connection.
func (s *socketSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(s.done)
		s.conn.Close()
	}()

	for {
		select {
		case out := <-s.replies:
			if !s.write(out) {
				return
			}
		case event, ok := <-s.client.Events:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !s.write(event) {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *socketSession) write(data []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("client_id", s.client.ID).Msg("chat websocket write failed")
		return false
	}
	return true
}

func (h *ChatSocketHandler) dispatch(ctx context.Context, s *socketSession, req *SocketRequest) SocketResponse {
	data, err := h.call(ctx, s, req)
	if err != nil {
		return SocketResponse{ID: req.ID, Error: socketError(err)}
	}
	return SocketResponse{ID: req.ID, OK: true, Data: data}
}

func (h *ChatSocketHandler) call(ctx context.Context, s *socketSession, req *SocketRequest) (interface{}, error) {
	switch req.Action {
	case ActionChatsList:
		var p listPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		f := repository.ListFilter{Search: p.Search, Page: utils.NewPage(p.Page, p.Limit)}
		chats, total, err := h.chats.List(ctx, s.businessID, f)
		if err != nil {
			return nil, err
		}
		return gin.H{"chats": chats, "total": total, "page": f.Page.Page, "limit": f.Page.Limit}, nil

	case ActionChatsMessages:
		var p messagesPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return h.chats.Messages(ctx, s.businessID, p.ChatID, p.Before, p.Limit)

	case ActionMessagesSend:
		var p sendPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		from := service.Sender{Type: models.SenderUser, ID: s.userID}
		return h.chats.Send(ctx, s.businessID, p.ChatID, from, &service.SendMessageRequest{Body: p.Body})

	case ActionGroupsCreate:
		var p service.CreateGroupRequest
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return h.chats.CreateGroup(ctx, s.businessID, s.userID, &p)

	case ActionGroupsAddMember:
		var p addMemberPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return h.chats.AddMember(ctx, s.businessID, p.ChatID, &service.AddChatMemberRequest{UserID: p.UserID, CustomerID: p.CustomerID})

	default:
		return nil, fmt.Errorf("unknown action %q: %w", req.Action, utils.ErrInvalidInput)
	}
}

// decodePayload unmarshals and validates with the same binding tags as REST.
func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return utils.ValidationError(err)
		}
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return utils.ValidationError(err)
	}
	return nil
}

var socketErrors = []error{
	utils.ErrNotFound,
	utils.ErrDuplicate,
	utils.ErrInvalidInput,
	utils.ErrInvalidState,
	utils.ErrForbidden,
	utils.ErrUnavailable,
}

func socketError(err error) *utils.ErrorInfo {
	for _, sentinel := range socketErrors {
		if errors.Is(err, sentinel) {
			return &utils.ErrorInfo{Code: sentinel.Error(), Message: err.Error()}
		}
	}
	log.Error().Err(err).Msg("chat socket request failed")
	return &utils.ErrorInfo{Code: "INTERNAL_ERROR", Message: "Request failed"}
}
