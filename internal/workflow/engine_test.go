package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type engineFixture struct {
	engine   *Engine
	users    *repository.MemoryUserRepository
	tickets  *repository.MemoryTicketRepository
	comments *repository.MemoryCommentRepository
	events   *[]events.Event
}

func newEngineFixture() *engineFixture {
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository(users)
	comments := repository.NewMemoryCommentRepository()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	recorded := &[]events.Event{}
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, event events.Event) error {
		*recorded = append(*recorded, event)
		return nil
	})

	now := time.Now()
	users.Seed(domain.User{ID: "agent-1", Name: "Agent One", Email: "agent1@example.com", Role: domain.RoleAgent, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "admin-1", Name: "Admin One", Email: "admin1@example.com", Role: domain.RoleAdmin, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "user-1", Name: "End User", Email: "user1@example.com", Role: domain.RoleUser, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "inactive-1", Name: "Gone", Email: "gone@example.com", Role: domain.RoleAgent, IsActive: false, CreatedAt: now})

	engine := NewEngine(EngineDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		CommentRepo: comments,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
	return &engineFixture{engine: engine, users: users, tickets: tickets, comments: comments, events: recorded}
}

func (f *engineFixture) seedTicket(id string, status domain.TicketStatus, assignedTo *string, age time.Duration) {
	created := time.Now().Add(-age)
	f.tickets.Seed(domain.Ticket{
		ID:         id,
		Title:      "ticket " + id,
		Status:     status,
		Priority:   domain.TicketPriorityMedium,
		CreatedBy:  "user-1",
		AssignedTo: assignedTo,
		CreatedAt:  created,
		UpdatedAt:  created,
	})
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code, domainErr.Message)
	}
}

func strPtr(s string) *string { return &s }

func TestValidateTable(t *testing.T) {
	if err := ValidateTable(); err != nil {
		t.Fatalf("transition table should be valid: %v", err)
	}
}

func TestChangeStatusSameStatusBeforeRoleCheck(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, nil, time.Hour)

	// An end-user can never change status, but a no-op change must still
	// be reported as a validation problem, not an authorization one.
	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusOpen, "user-1", "", "")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestChangeStatusUnknownTarget(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, nil, time.Hour)

	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatus("ARCHIVED"), "agent-1", "", "done")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestChangeStatusRoleForbidden(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, nil, time.Hour)

	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusClosed, "user-1", "", "closing my own ticket")
	assertErrorCode(t, err, "FORBIDDEN")
}

func TestChangeStatusRequiresAssignment(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, nil, time.Hour)

	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusInProgress, "agent-1", "", "")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestChangeStatusRequiresComment(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, strPtr("agent-1"), time.Hour)

	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusClosed, "agent-1", "", "   ")
	assertErrorCode(t, err, "VALIDATION_FAILED")
}

func TestChangeStatusSuccess(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, strPtr("agent-1"), time.Hour)

	updated, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusClosed, "agent-1", "resolved", "fixed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.TicketStatusClosed {
		t.Fatalf("expected status CLOSED, got %s", updated.Status)
	}

	thread, err := f.comments.ListByTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(thread) != 1 || thread[0].Body != "fixed" {
		t.Fatalf("expected one persisted comment with body %q, got %+v", "fixed", thread)
	}

	if len(*f.events) != 1 {
		t.Fatalf("expected one status-changed event, got %d", len(*f.events))
	}
	payload, ok := (*f.events)[0].Payload.(events.TicketStatusChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", (*f.events)[0].Payload)
	}
	if payload.OldStatus != domain.TicketStatusOpen || payload.NewStatus != domain.TicketStatusClosed {
		t.Fatalf("expected OPEN -> CLOSED, got %s -> %s", payload.OldStatus, payload.NewStatus)
	}
}

func TestChangeStatusInactiveActor(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, strPtr("agent-1"), time.Hour)

	_, err := f.engine.ChangeStatus(context.Background(), "t1", domain.TicketStatusClosed, "inactive-1", "", "done")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestChangeStatusTicketNotFound(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.ChangeStatus(context.Background(), "missing", domain.TicketStatusClosed, "agent-1", "", "done")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestGetValidTransitions(t *testing.T) {
	f := newEngineFixture()

	if got := f.engine.GetValidTransitions(domain.TicketStatusOpen, domain.RoleUser); len(got) != 0 {
		t.Fatalf("end-users should have no transitions, got %v", got)
	}
	agentTargets := f.engine.GetValidTransitions(domain.TicketStatusOpen, domain.RoleAgent)
	if len(agentTargets) != 2 {
		t.Fatalf("expected 2 targets from OPEN for agents, got %v", agentTargets)
	}
}

func TestCanUserChangeStatus(t *testing.T) {
	f := newEngineFixture()

	if !f.engine.CanUserChangeStatus(domain.RoleAdmin, domain.TicketStatusClosed, domain.TicketStatusOpen) {
		t.Fatal("admins should be able to reopen closed tickets")
	}
	if f.engine.CanUserChangeStatus(domain.RoleUser, domain.TicketStatusOpen, domain.TicketStatusClosed) {
		t.Fatal("end-users should never pass the role check")
	}
	if f.engine.CanUserChangeStatus(domain.RoleAdmin, domain.TicketStatusOpen, domain.TicketStatusOpen) {
		t.Fatal("self transitions are not in the table")
	}
}

func TestGetTransitionRequirements(t *testing.T) {
	f := newEngineFixture()

	row := f.engine.GetTransitionRequirements(domain.TicketStatusClosed, domain.TicketStatusInProgress)
	if row == nil {
		t.Fatal("expected a table row for CLOSED -> IN_PROGRESS")
	}
	if !row.RequiresAssignment || !row.RequiresComment {
		t.Fatalf("CLOSED -> IN_PROGRESS should require assignment and comment, got %+v", row)
	}
	if f.engine.GetTransitionRequirements(domain.TicketStatusOpen, domain.TicketStatus("ARCHIVED")) != nil {
		t.Fatal("unknown pair should return nil")
	}
}

func TestBulkChangeStatusIsolation(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("t1", domain.TicketStatusOpen, strPtr("agent-1"), time.Hour)
	f.seedTicket("t2", domain.TicketStatusOpen, strPtr("agent-1"), time.Hour)

	ids := []string{"t1", "missing", "t2"}
	result := f.engine.BulkChangeStatus(context.Background(), ids, domain.TicketStatusClosed, "agent-1", "", "batch close")

	if len(result.Successful)+len(result.Failed) != len(ids) {
		t.Fatalf("every input must be accounted for: %d successful, %d failed", len(result.Successful), len(result.Failed))
	}
	if len(result.Successful) != 2 {
		t.Fatalf("expected 2 successes, got %v", result.Successful)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "missing" {
		t.Fatalf("expected only %q to fail, got %+v", "missing", result.Failed)
	}
}

func TestAutoCloseStaleTickets(t *testing.T) {
	f := newEngineFixture()
	f.seedTicket("stale", domain.TicketStatusOpen, nil, 40*24*time.Hour)
	f.seedTicket("fresh", domain.TicketStatusOpen, nil, 24*time.Hour)
	f.seedTicket("working", domain.TicketStatusInProgress, strPtr("agent-1"), 60*24*time.Hour)

	result, err := f.engine.AutoCloseStaleTickets(context.Background(), 30, "admin-1", "sweep")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Successful) != 1 || result.Successful[0] != "stale" {
		t.Fatalf("expected only the stale ticket to close, got %+v", result)
	}

	closed, _ := f.tickets.GetByID(context.Background(), "stale")
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("stale ticket should be CLOSED, got %s", closed.Status)
	}
	fresh, _ := f.tickets.GetByID(context.Background(), "fresh")
	if fresh.Status != domain.TicketStatusOpen {
		t.Fatalf("fresh ticket should stay OPEN, got %s", fresh.Status)
	}

	thread, _ := f.comments.ListByTicket(context.Background(), "stale")
	if len(thread) != 1 {
		t.Fatalf("expected one synthesized comment, got %d", len(thread))
	}
}
