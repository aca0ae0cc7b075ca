package sse

import (
	"github.com/GTDGit/gtd_dashboard/internal/models"
)

// ChatNotifier is the interface services use to emit chat events.
type ChatNotifier interface {
	NotifyMessageCreated(businessID int, msg *models.Message)
	NotifyChatCreated(businessID int, chat *models.Chat)
	NotifyMemberAdded(businessID int, member *models.ChatMember)
}

// PaymentNotifier is the interface services use to emit payment events.
type PaymentNotifier interface {
	NotifyPaymentSuccessful(businessID int, p *models.Payment)
}

// HubNotifier implements the notifiers using the Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) publish(businessID int, t EventType, data interface{}) {
	if n.hub.ClientCount(businessID) == 0 {
		return
	}
	n.hub.Publish(businessID, &Event{Event: t, Data: data})
}

func (n *HubNotifier) NotifyMessageCreated(businessID int, msg *models.Message) {
	n.publish(businessID, EventMessageCreated, msg)
}

func (n *HubNotifier) NotifyChatCreated(businessID int, chat *models.Chat) {
	n.publish(businessID, EventChatCreated, chat)
}

func (n *HubNotifier) NotifyMemberAdded(businessID int, member *models.ChatMember) {
	n.publish(businessID, EventChatMemberAdded, member)
}

func (n *HubNotifier) NotifyPaymentSuccessful(businessID int, p *models.Payment) {
	n.publish(businessID, EventPaymentSuccessful, p)
}

// NopNotifier is a no-op implementation for when realtime delivery is not needed.
type NopNotifier struct{}

func (NopNotifier) NotifyMessageCreated(int, *models.Message)    {}
func (NopNotifier) NotifyChatCreated(int, *models.Chat)          {}
func (NopNotifier) NotifyMemberAdded(int, *models.ChatMember)    {}
func (NopNotifier) NotifyPaymentSuccessful(int, *models.Payment) {}
