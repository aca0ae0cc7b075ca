package models

import "time"

// SenderType identifies who wrote a message.
type SenderType string

const (
	SenderUser     SenderType = "user"
	SenderCustomer SenderType = "customer"
)

// Chat is a conversation thread, either with one customer or a group.
type Chat struct {
	ID            int        `db:"id" json:"id"`
	BusinessID    int        `db:"business_id" json:"-"`
	Name          string     `db:"name" json:"name"`
	IsGroup       bool       `db:"is_group" json:"isGroup"`
	CustomerID    *int       `db:"customer_id" json:"customerId,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`

	Messages []Message `db:"-" json:"messages,omitempty"`
}

// ChatMember is a participant of a group chat.
type ChatMember struct {
	ChatID     int       `db:"chat_id" json:"chatId"`
	UserID     *int      `db:"user_id" json:"userId,omitempty"`
	CustomerID *int      `db:"customer_id" json:"customerId,omitempty"`
	JoinedAt   time.Time `db:"joined_at" json:"joinedAt"`
}

// Message is a single chat message.
type Message struct {
	ID         int        `db:"id" json:"id"`
	ChatID     int        `db:"chat_id" json:"chatId"`
	SenderType SenderType `db:"sender_type" json:"senderType"`
	SenderID   int        `db:"sender_id" json:"senderId"`
	Body       string     `db:"body" json:"body"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}
