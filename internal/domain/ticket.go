package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedBy   string
	AssignedTo  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Resolved relations, populated by GetByIDWithRelations only.
	Creator  *User
	Assignee *User
}

// IsActiveStatus reports whether a status counts toward an assignee's workload.
func IsActiveStatus(status TicketStatus) bool {
	return status == TicketStatusOpen || status == TicketStatusInProgress
}
