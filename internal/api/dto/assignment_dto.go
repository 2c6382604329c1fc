package dto

import (
	"github.com/spec-kit/helpdesk-service/internal/assignment"
)

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
	Reason     string `json:"reason"`
}

// UnassignTicketRequest payload.
type UnassignTicketRequest struct {
	Reason string `json:"reason"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs  []string `json:"ticket_ids"`
	AssigneeID string   `json:"assignee_id"`
	Reason     string   `json:"reason"`
}

// WorkloadResponse reports a staff member's active ticket count.
type WorkloadResponse struct {
	User        UserResponse `json:"user"`
	TotalActive int          `json:"total_active"`
	IsAvailable bool         `json:"is_available"`
}

// RecommendationResponse scores one candidate assignee.
type RecommendationResponse struct {
	UserID          string       `json:"user_id"`
	User            UserResponse `json:"user"`
	Score           int          `json:"score"`
	Reasons         []string     `json:"reasons"`
	CurrentWorkload int          `json:"current_workload"`
}

// WorkloadView maps a workload snapshot to its response shape.
func WorkloadView(w assignment.AssigneeWorkload) WorkloadResponse {
	return WorkloadResponse{
		User:        UserView(&w.User),
		TotalActive: w.TotalActive,
		IsAvailable: w.IsAvailable,
	}
}

// RecommendationView maps a recommendation to its response shape.
func RecommendationView(rec assignment.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		UserID:          rec.UserID,
		User:            UserView(&rec.User),
		Score:           rec.Score,
		Reasons:         rec.Reasons,
		CurrentWorkload: rec.CurrentWorkload,
	}
}
