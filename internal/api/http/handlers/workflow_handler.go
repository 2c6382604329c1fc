package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// WorkflowHandler exposes status transition endpoints.
type WorkflowHandler struct {
	engine  *workflow.Engine
	tickets repository.TicketRepository
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(engine *workflow.Engine, tickets repository.TicketRepository) *WorkflowHandler {
	return &WorkflowHandler{engine: engine, tickets: tickets}
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *WorkflowHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.engine.ChangeStatus(c.UserContext(), c.Params("id"), req.Status, principal.User.ID, req.Reason, req.Comment)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.TicketView(ticket))
}

// ValidTransitions GET /tickets/:id/transitions returns the statuses the
// caller may move the ticket to from its current status.
func (h *WorkflowHandler) ValidTransitions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
		}
		return apperrors.MapError(err)
	}
	targets := h.engine.GetValidTransitions(ticket.Status, principal.User.Role)
	return respond(c, fiber.StatusOK, fiber.Map{
		"current_status": ticket.Status,
		"transitions":    targets,
	})
}

// TransitionRequirements GET /workflow/requirements?from=&to=.
func (h *WorkflowHandler) TransitionRequirements(c *fiber.Ctx) error {
	from := domain.TicketStatus(c.Query("from"))
	to := domain.TicketStatus(c.Query("to"))
	if from == "" || to == "" {
		return apperrors.NewValidationError("from and to required", nil)
	}
	transition := h.engine.GetTransitionRequirements(from, to)
	if transition == nil {
		return apperrors.NewNotFound("transition", map[string]any{"from": from, "to": to})
	}
	return respond(c, fiber.StatusOK, dto.TransitionRequirementsResponse{
		From:               transition.From,
		To:                 transition.To,
		AllowedRoles:       transition.AllowedRoles,
		RequiresAssignment: transition.RequiresAssignment,
		RequiresComment:    transition.RequiresComment,
	})
}

// BulkChangeStatus POST /tickets/bulk/status.
func (h *WorkflowHandler) BulkChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.BulkChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	result := h.engine.BulkChangeStatus(c.UserContext(), req.TicketIDs, req.Status, principal.User.ID, req.Reason, req.Comment)
	return respond(c, fiber.StatusOK, dto.BulkResultView(result))
}

// AutoClose POST /workflow/auto-close sweeps stale open tickets.
func (h *WorkflowHandler) AutoClose(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AutoCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	daysOld := req.DaysOld
	if daysOld <= 0 {
		daysOld = workflow.DefaultStaleDays
	}
	result, err := h.engine.AutoCloseStaleTickets(c.UserContext(), daysOld, principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.BulkResultView(result))
}
