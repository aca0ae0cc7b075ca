package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type chatService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Chat, int, error)
	Get(ctx context.Context, businessID, id int) (*service.ChatDetail, error)
	Messages(ctx context.Context, businessID, chatID, beforeID, limit int) ([]models.Message, error)
	Send(ctx context.Context, businessID, chatID int, from service.Sender, req *service.SendMessageRequest) (*models.Message, error)
	CreateGroup(ctx context.Context, businessID, creatorID int, req *service.CreateGroupRequest) (*models.Chat, error)
	OpenDirect(ctx context.Context, businessID, userID int, req *service.OpenDirectRequest) (*models.Chat, bool, error)
	AddMember(ctx context.Context, businessID, chatID int, req *service.AddChatMemberRequest) (*models.ChatMember, error)
}

// ChatHandler exposes chat threads over REST.
type ChatHandler struct {
	chats chatService
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chats chatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// ListChats handles GET /v1/chats. Threads come back most recent first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.chats.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve chats")
		return
	}
	paginated(c, "Chats retrieved", list, f, total)
}

// GetChat handles GET /v1/chats/:id
func (h *ChatHandler) GetChat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.chats.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve chat")
		return
	}
	utils.Success(c, 200, "Chat retrieved", detail)
}

// ListMessages handles GET /v1/chats/:id/messages?before=&limit=
func (h *ChatHandler) ListMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, ok := queryID(c, "before")
	if !ok {
		return
	}
	limit, ok := queryID(c, "limit")
	if !ok {
		return
	}
	msgs, err := h.chats.Messages(c.Request.Context(), middleware.BusinessID(c), id, before, limit)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve messages")
		return
	}
	utils.Success(c, 200, "Messages retrieved", msgs)
}

// SendMessage handles POST /v1/chats/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chats.Send(c.Request.Context(), middleware.BusinessID(c), id, userSender(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to send message")
		return
	}
	utils.Success(c, 201, "Message sent", msg)
}

// CreateGroup handles POST /v1/chats/groups
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req service.CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	chat, err := h.chats.CreateGroup(c.Request.Context(), middleware.BusinessID(c), c.GetInt("user_id"), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create group")
		return
	}
	utils.Success(c, 201, "Group created successfully", chat)
}

// OpenDirect handles POST /v1/chats/direct
func (h *ChatHandler) OpenDirect(c *gin.Context) {
	var req service.OpenDirectRequest
	if !bindJSON(c, &req) {
		return
	}
	chat, created, err := h.chats.OpenDirect(c.Request.Context(), middleware.BusinessID(c), c.GetInt("user_id"), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to open chat")
		return
	}
	if created {
		utils.Success(c, 201, "Chat created", chat)
		return
	}
	utils.Success(c, 200, "Chat retrieved", chat)
}

// AddMember handles POST /v1/chats/:id/members
func (h *ChatHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AddChatMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.chats.AddMember(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to add member")
		return
	}
	utils.Success(c, 201, "Member added", m)
}

func userSender(c *gin.Context) service.Sender {
	return service.Sender{Type: models.SenderUser, ID: c.GetInt("user_id")}
}
