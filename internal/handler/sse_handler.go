package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
)

// SSEHandler streams a business's realtime events as Server-Sent Events.
type SSEHandler struct {
	hub       *sse.Hub
	keepAlive time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, keepAlive: 30 * time.Second}
}

// Stream handles GET /v1/chats/stream?token=<jwt>&business_id=<id>
// EventSource cannot set headers, so auth and tenant come from the query.
func (h *SSEHandler) Stream(c *gin.Context) {
	businessID := middleware.BusinessID(c)
	userID := c.GetInt("user_id")
	clientID := fmt.Sprintf("sse-%d-%s", userID, uuid.New().String()[:8])

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(businessID, clientID)
	defer h.hub.Unregister(client)
	metrics.RealtimeConnected("sse", 1)
	defer metrics.RealtimeConnected("sse", -1)

	c.SSEvent("connected", gin.H{
		"clientId":   clientID,
		"businessId": businessID,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("user_id", userID).Int("business_id", businessID).Msg("chat SSE stream started")

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(eventName(data), string(data))
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// eventName extracts the event type so EventSource listeners can filter.
func eventName(data []byte) string {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Event == "" {
		return "message"
	}
	return head.Event
}
