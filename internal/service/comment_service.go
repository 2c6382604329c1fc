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

// CommentService manages ticket comment threads.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles repositories.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AddComment appends a comment to a ticket. End-users may only comment on
// their own tickets.
func (s *CommentService) AddComment(ctx context.Context, actorID, ticketID, body string) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsActive {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleUser && ticket.CreatedBy != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     strings.TrimSpace(body),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventCommentAdded,
			TicketID:  ticket.ID,
			Timestamp: time.Now(),
			Payload: events.CommentAddedPayload{
				Ticket:  ticket,
				Comment: comment,
				Author:  actor,
			},
		})
	}
	return comment, nil
}

// DeleteComment removes a comment. Only the author or an ADMIN may delete.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, commentID string) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
		}
		return apperrors.MapError(err)
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"comment_id": commentID})
		}
		return apperrors.MapError(err)
	}
	if comment.AuthorID != actor.ID && actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only the author or an admin can delete a comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// BulkDeleteComments deletes each comment in turn with per-item isolation.
func (s *CommentService) BulkDeleteComments(ctx context.Context, actorID string, commentIDs []string) *domain.BulkResult {
	result := domain.NewBulkResult()
	for _, id := range commentIDs {
		if err := s.DeleteComment(ctx, actorID, id); err != nil {
			result.AddFailure(id, err)
			continue
		}
		result.AddSuccess(id)
	}
	return result
}
