package domain

import "time"

// NotificationType enumerates supported notification kinds.
type NotificationType string

const (
	NotificationTicketCreated       NotificationType = "ticket_created"
	NotificationTicketAssigned      NotificationType = "ticket_assigned"
	NotificationTicketUnassigned    NotificationType = "ticket_unassigned"
	NotificationTicketStatusChanged NotificationType = "ticket_status_changed"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationTicketClosed        NotificationType = "ticket_closed"
	NotificationTicketReopened      NotificationType = "ticket_reopened"
)

// ActorRef is a snapshot of the user who triggered a notification.
type ActorRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Notification is a single inbox entry for a user. Entries live in memory
// for the process lifetime and are lost on restart.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	UserID    string           `json:"user_id"`
	TicketID  *string          `json:"ticket_id,omitempty"`
	CommentID *string          `json:"comment_id,omitempty"`
	ActionBy  *ActorRef        `json:"action_by,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}
