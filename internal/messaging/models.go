package messaging

import (
	"fmt"
	"time"

	"backend-optikick/internal/user"
)

type Kind string

const (
	KindText  Kind = "text"
	KindVoice Kind = "voice"
	KindPhoto Kind = "photo"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Realtime events published to participants.
const (
	EventNewMessage      = "new_message"
	EventMessageRead     = "message_read"
	EventMessageReaction = "message_reaction"
	EventMessageDeleted  = "message_deleted"
)

const (
	historyLimit = 50
	maxTextRunes = 1000
)

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	RecipientID    string     `json:"recipient_id"`
	Type           Kind       `json:"type"`
	Content        string     `json:"content,omitempty"`
	FileURL        string     `json:"file_url,omitempty"`
	Reaction       string     `json:"reaction,omitempty"`
	Status         Status     `json:"status"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// View is a message as rendered in a conversation history.
type View struct {
	Message
	Age    string       `json:"age"`
	Sender user.Summary `json:"sender"`
}

type LastMessage struct {
	ID        string `json:"id"`
	Type      Kind   `json:"type"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	IsRead    bool   `json:"is_read"`
}

type Conversation struct {
	ID          string       `json:"id"`
	Participant user.Summary `json:"participant"`
	LastMessage *LastMessage `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
}

type SendInput struct {
	Type    string `json:"type" form:"type" validate:"required,oneof=text voice photo"`
	Content string `json:"content" form:"content" validate:"max=1000"`
}

type ReactInput struct {
	Reaction string `json:"reaction"`
}

// age renders the compact elapsed time shown next to messages.
func age(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

// singleEmoji accepts exactly one code point from the pictograph blocks.
func singleEmoji(s string) bool {
	r := []rune(s)
	return len(r) == 1 && r[0] >= 0x1F300 && r[0] <= 0x1F9FF
}
