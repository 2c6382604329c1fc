package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentHandler exposes assignee discovery and assignment endpoints.
type AssignmentHandler struct {
	recommender *assignment.Recommender
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(recommender *assignment.Recommender) *AssignmentHandler {
	return &AssignmentHandler{recommender: recommender}
}

// AvailableAssignees GET /assignment/assignees.
func (h *AssignmentHandler) AvailableAssignees(c *fiber.Ctx) error {
	users, err := h.recommender.GetAvailableAssignees(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.UserView(&users[i]))
	}
	return respond(c, fiber.StatusOK, items)
}

// Workloads GET /assignment/workloads.
func (h *AssignmentHandler) Workloads(c *fiber.Ctx) error {
	workloads, err := h.recommender.GetAssigneeWorkloads(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WorkloadResponse, 0, len(workloads))
	for _, w := range workloads {
		items = append(items, dto.WorkloadView(w))
	}
	return respond(c, fiber.StatusOK, items)
}

// Recommendations GET /tickets/:id/recommendations.
func (h *AssignmentHandler) Recommendations(c *fiber.Ctx) error {
	recs, err := h.recommender.GetAssignmentRecommendations(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		items = append(items, dto.RecommendationView(rec))
	}
	return respond(c, fiber.StatusOK, items)
}

// Assign POST /tickets/:id/assign.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	ticket, err := h.recommender.AssignTicket(c.UserContext(), c.Params("id"), req.AssigneeID, principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketView(ticket))
}

// Reassign POST /tickets/:id/reassign.
func (h *AssignmentHandler) Reassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	ticket, err := h.recommender.ReassignTicket(c.UserContext(), c.Params("id"), req.AssigneeID, principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketView(ticket))
}

// Unassign POST /tickets/:id/unassign.
func (h *AssignmentHandler) Unassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UnassignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.recommender.UnassignTicket(c.UserContext(), c.Params("id"), principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketView(ticket))
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *AssignmentHandler) AutoAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.recommender.AutoAssignTicket(c.UserContext(), c.Params("id"), principal.User.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketView(ticket))
}

// BulkAssign POST /tickets/bulk/assign.
func (h *AssignmentHandler) BulkAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	result := h.recommender.BulkAssignTickets(c.UserContext(), req.TicketIDs, req.AssigneeID, principal.User.ID, req.Reason)
	return respond(c, fiber.StatusOK, dto.BulkResultView(result))
}
