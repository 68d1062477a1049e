package notify

import (
	"encoding/json"
	"time"

	"backend-optikick/internal/user"
)

type Type string

const (
	TypeAssessment      Type = "assessment"
	TypeMetricAlert     Type = "metric_alert"
	TypeProgramCreated  Type = "program_created"
	TypeProgramUpdate   Type = "program_update"
	TypeTrainingProgram Type = "training_program"
	TypeMessage         Type = "message"
	TypeReaction        Type = "reaction"
)

// Realtime events published to the owner's other connections.
const (
	EventRead        = "notification_read"
	EventAllRead     = "all_notifications_read"
	EventPinned      = "notification_pinned"
	EventUnpinned    = "notification_unpinned"
	EventDeleted     = "notification_deleted"
	EventReactionOff = "reaction_removed"
)

const noAction = "No action available for this notification."

// Notification is one addressed record in a user's inbox.
type Notification struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         Type            `json:"type"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	SenderID     string          `json:"sender_id,omitempty"`
	ProgramID    string          `json:"training_program_id,omitempty"`
	AssessmentID string          `json:"assessment_request_id,omitempty"`
	MessageID    string          `json:"message_id,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	ReadAt       *time.Time      `json:"read_at"`
	IsPinned     bool            `json:"is_pinned"`
	CreatedAt    time.Time       `json:"created_at"`
}

// View is a notification shaped for the inbox screens.
type View struct {
	Notification
	IsRead     bool          `json:"is_read"`
	Sender     *user.Summary `json:"sender,omitempty"`
	NavigateTo string        `json:"navigate_to"`
}

type Filter int

const (
	All Filter = iota
	Unread
	Pinned
)

// Subject names the player a trigger is about.
type Subject struct {
	PlayerID   string
	PlayerName string
}

type AssessmentRef struct {
	Subject
	AssessmentID string
	DoctorID     string
	Issue        string
}

type ProgramRef struct {
	Subject
	ProgramID string
}

type MessageRef struct {
	MessageID      string
	ConversationID string
	SenderID       string
	SenderName     string
	RecipientID    string
	Kind           string
	Text           string
}
