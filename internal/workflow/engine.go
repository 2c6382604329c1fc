package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// DefaultStaleDays is the age beyond which open tickets are auto-closed.
const DefaultStaleDays = 30

// Engine validates and executes ticket status changes against the
// transition table and publishes the resulting domain events.
type Engine struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// EngineDependencies bundles collaborators.
type EngineDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewEngine creates the engine. The transition table must have passed
// ValidateTable before the process serves traffic.
func NewEngine(deps EngineDependencies) *Engine {
	return &Engine{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// ChangeStatus performs a single validated status change. The same-status
// guard runs before the role check, so a no-op change is always reported as
// such regardless of the actor's permissions. Follow-up actions run after
// the status is persisted and can never roll it back.
func (e *Engine) ChangeStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actorID, reason, comment string) (*domain.Ticket, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	actor, err := e.loadActiveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if ticket.Status == newStatus {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("ticket is already in %s", newStatus), nil)
	}

	row := findTransition(ticket.Status, newStatus)
	if row == nil {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("invalid transition %s -> %s", ticket.Status, newStatus), nil)
	}
	if !row.RoleAllowed(actor.Role) {
		return nil, apperrors.NewForbidden(
			fmt.Sprintf("role %s cannot perform transition %s -> %s", actor.Role, ticket.Status, newStatus))
	}

	missingAssignment := row.RequiresAssignment && ticket.AssignedTo == nil
	missingComment := row.RequiresComment && strings.TrimSpace(comment) == ""
	if missingAssignment {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("transition to %s requires the ticket to be assigned", newStatus), nil)
	}
	if missingComment {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("transition to %s requires a comment", newStatus), nil)
	}

	if row.RequiresComment {
		record := &domain.Comment{
			TicketID: ticket.ID,
			AuthorID: actor.ID,
			Body:     strings.TrimSpace(comment),
		}
		if err := e.comments.Create(ctx, record); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	oldStatus := ticket.Status
	if err := e.tickets.UpdateStatus(ctx, ticket.ID, newStatus); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = newStatus
	ticket.UpdatedAt = time.Now()

	e.publishStatusChanged(ctx, ticket, actor, oldStatus, newStatus, comment, row.AutoActions)

	updated, err := e.tickets.GetByIDWithRelations(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// GetValidTransitions returns all statuses reachable from the given status
// for the given role.
func (e *Engine) GetValidTransitions(status domain.TicketStatus, role domain.Role) []domain.TicketStatus {
	targets := []domain.TicketStatus{}
	for _, row := range transitionTable {
		if row.From == status && row.RoleAllowed(role) {
			targets = append(targets, row.To)
		}
	}
	return targets
}

// GetTransitionRequirements returns the table row for (from,to), role
// independent, or nil when the pair is not in the table.
func (e *Engine) GetTransitionRequirements(from, to domain.TicketStatus) *domain.StatusTransition {
	return findTransition(from, to)
}

// CanUserChangeStatus reports whether a row exists for (from,to) that the
// role may execute.
func (e *Engine) CanUserChangeStatus(role domain.Role, from, to domain.TicketStatus) bool {
	row := findTransition(from, to)
	return row != nil && row.RoleAllowed(role)
}

// BulkChangeStatus applies the same status change to each ticket in turn.
// Items are isolated: one failure never aborts the batch, and every input
// id is accounted for in the result.
func (e *Engine) BulkChangeStatus(ctx context.Context, ticketIDs []string, newStatus domain.TicketStatus, actorID, reason, comment string) *domain.BulkResult {
	result := domain.NewBulkResult()
	for _, id := range ticketIDs {
		if _, err := e.ChangeStatus(ctx, id, newStatus, actorID, reason, comment); err != nil {
			result.AddFailure(id, err)
			continue
		}
		result.AddSuccess(id)
	}
	return result
}

// AutoCloseStaleTickets closes OPEN tickets older than daysOld with a
// synthesized comment, one by one with the same isolation as bulk changes.
func (e *Engine) AutoCloseStaleTickets(ctx context.Context, daysOld int, actorID, reason string) (*domain.BulkResult, error) {
	if daysOld <= 0 {
		daysOld = DefaultStaleDays
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	stale, err := e.tickets.FindStale(ctx, cutoff)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	comment := fmt.Sprintf("Automatically closed: ticket inactive for more than %d days", daysOld)
	result := domain.NewBulkResult()
	for _, ticket := range stale {
		if _, err := e.ChangeStatus(ctx, ticket.ID, domain.TicketStatusClosed, actorID, reason, comment); err != nil {
			result.AddFailure(ticket.ID, err)
			continue
		}
		result.AddSuccess(ticket.ID)
	}
	if len(result.Failed) > 0 {
		e.logger.Warn("auto-close sweep completed with failures",
			zap.Int("closed", len(result.Successful)),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

func (e *Engine) loadActiveActor(ctx context.Context, actorID string) (*domain.User, error) {
	actor, err := e.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsActive {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
	}
	return actor, nil
}

func (e *Engine) publishStatusChanged(ctx context.Context, ticket *domain.Ticket, actor *domain.User, oldStatus, newStatus domain.TicketStatus, comment string, actions []domain.AutoAction) {
	if e.dispatcher == nil {
		return
	}
	snapshot := *ticket
	_ = e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Timestamp: time.Now(),
		Payload: events.TicketStatusChangedPayload{
			Ticket:      &snapshot,
			Actor:       actor,
			OldStatus:   oldStatus,
			NewStatus:   newStatus,
			Comment:     comment,
			AutoActions: actions,
		},
	})
}
