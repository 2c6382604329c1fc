package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventCommentAdded        EventType = "comment_added"
)

// Event represents a domain event emitted by services. Payload snapshots
// everything subscribers need so they never re-read mutable state.
type Event struct {
	ID        string
	Type      EventType
	TicketID  string
	Timestamp time.Time
	Payload   interface{}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket
	Actor  *domain.User
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket      *domain.Ticket
	Actor       *domain.User
	OldStatus   domain.TicketStatus
	NewStatus   domain.TicketStatus
	Comment     string
	AutoActions []domain.AutoAction
}

// TicketAssignedPayload covers assign, reassign, auto-assign and unassign.
// NewAssignee is nil for an unassignment.
type TicketAssignedPayload struct {
	Ticket           *domain.Ticket
	Actor            *domain.User
	NewAssignee      *domain.User
	PreviousAssignee *domain.User
	Score            *int
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	Ticket  *domain.Ticket
	Comment *domain.Comment
	Author  *domain.User
}
