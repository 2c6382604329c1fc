package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket creation and retrieval. Status and
// assignment mutations live in the workflow and assignment packages.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes a ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssignedTo  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket for the given user.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (*domain.Ticket, error) {
	creator, err := s.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		assignee, err := s.users.GetByID(ctx, *input.AssignedTo)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": *input.AssignedTo})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.CanBeAssigned() {
			return nil, apperrors.NewValidationError("assignee must be an active agent or admin", nil)
		}
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatedBy:   creator.ID,
		AssignedTo:  input.AssignedTo,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Ticket: ticket,
			Actor:  creator,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets visible to the principal: end-users see their
// own, staff see everything the filter matches.
func (s *TicketService) ListTickets(ctx context.Context, principal *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if principal.Role == domain.RoleUser {
		filter.CreatedBy = &principal.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns a ticket with relations and its comment thread.
func (s *TicketService) GetTicket(ctx context.Context, principal *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.tickets.GetByIDWithRelations(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if principal.Role == domain.RoleUser && ticket.CreatedBy != principal.ID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	thread, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, thread, nil
}

func (s *TicketService) loadActiveUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	return user, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
