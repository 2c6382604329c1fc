package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	AssignedTo  *string               `json:"assigned_to"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	CreatedBy  string                `json:"created_by"`
	AssignedTo *string               `json:"assigned_to"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with its comment thread.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to"`
	Creator     *UserResponse         `json:"creator,omitempty"`
	Assignee    *UserResponse         `json:"assignee,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Comments    []CommentResponse     `json:"comments"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Body string `json:"body"`
}

// BulkDeleteCommentsRequest payload.
type BulkDeleteCommentsRequest struct {
	CommentIDs []string `json:"comment_ids"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Reason  string              `json:"reason"`
	Comment string              `json:"comment"`
}

// BulkChangeStatusRequest payload.
type BulkChangeStatusRequest struct {
	TicketIDs []string            `json:"ticket_ids"`
	Status    domain.TicketStatus `json:"status"`
	Reason    string              `json:"reason"`
	Comment   string              `json:"comment"`
}

// AutoCloseRequest payload.
type AutoCloseRequest struct {
	DaysOld int    `json:"days_old"`
	Reason  string `json:"reason"`
}

// TransitionRequirementsResponse describes one transition table row.
type TransitionRequirementsResponse struct {
	From               domain.TicketStatus `json:"from"`
	To                 domain.TicketStatus `json:"to"`
	AllowedRoles       []domain.Role       `json:"allowed_roles"`
	RequiresAssignment bool                `json:"requires_assignment"`
	RequiresComment    bool                `json:"requires_comment"`
}

// BulkFailureResponse describes a single failed item.
type BulkFailureResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResultResponse summarizes a bulk operation.
type BulkResultResponse struct {
	Successful []string              `json:"successful"`
	Failed     []BulkFailureResponse `json:"failed"`
}

// TicketView maps a ticket to its summary view.
func TicketView(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		CreatedBy:  ticket.CreatedBy,
		AssignedTo: ticket.AssignedTo,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

// TicketDetailView maps a ticket plus its thread to the detail view.
func TicketDetailView(ticket *domain.Ticket, comments []domain.Comment) TicketDetailResponse {
	thread := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		thread = append(thread, CommentView(&comments[i]))
	}
	resp := TicketDetailResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		Comments:    thread,
	}
	if ticket.Creator != nil {
		creator := UserView(ticket.Creator)
		resp.Creator = &creator
	}
	if ticket.Assignee != nil {
		assignee := UserView(ticket.Assignee)
		resp.Assignee = &assignee
	}
	return resp
}

// CommentView maps a comment to its response shape.
func CommentView(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

// BulkResultView maps a bulk result to its response shape.
func BulkResultView(result *domain.BulkResult) BulkResultResponse {
	failed := make([]BulkFailureResponse, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, BulkFailureResponse{ID: f.ID, Error: f.Error})
	}
	return BulkResultResponse{Successful: result.Successful, Failed: failed}
}
