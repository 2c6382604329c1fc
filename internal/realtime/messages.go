package realtime

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// InboundMessage is the superset of all client-to-server messages; Type
// selects which fields are meaningful.
type InboundMessage struct {
	Type           string `json:"type"`
	TicketID       string `json:"ticketId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// NotificationMessage wraps a pushed notification.
type NotificationMessage struct {
	Type string              `json:"type"`
	Data domain.Notification `json:"data"`
}

// NotificationCountMessage carries the unread counter.
type NotificationCountMessage struct {
	Type        string    `json:"type"`
	UnreadCount int       `json:"unreadCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// NotificationsListMessage answers get_notifications.
type NotificationsListMessage struct {
	Type          string                `json:"type"`
	Notifications []domain.Notification `json:"notifications"`
	HasMore       bool                  `json:"hasMore"`
	UnreadCount   int                   `json:"unreadCount"`
	Timestamp     time.Time             `json:"timestamp"`
}

// AllReadMessage answers mark_all_read.
type AllReadMessage struct {
	Type        string    `json:"type"`
	MarkedCount int       `json:"markedCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// TicketUpdateMessage fans a ticket change out to joined room members.
type TicketUpdateMessage struct {
	Type       string      `json:"type"`
	TicketID   string      `json:"ticketId"`
	UpdateType string      `json:"updateType"`
	Data       interface{} `json:"data,omitempty"`
	UpdatedBy  *string     `json:"updatedBy,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// TypingMessage signals user_typing / user_stopped_typing. Ephemeral,
// never stored.
type TypingMessage struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	TicketID  string    `json:"ticketId"`
	Timestamp time.Time `json:"timestamp"`
}

// PongMessage answers ping with a liveness timestamp only.
type PongMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage reports a bad inbound request without closing the
// connection.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
