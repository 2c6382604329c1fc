package service

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

type serviceFixture struct {
	tickets  *TicketService
	comments *CommentService
	users    *repository.MemoryUserRepository
	ticketDB *repository.MemoryTicketRepository
	events   *[]events.Event
}

func newServiceFixture() *serviceFixture {
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository(users)
	comments := repository.NewMemoryCommentRepository()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	recorded := &[]events.Event{}
	for _, eventType := range []events.EventType{events.EventTicketCreated, events.EventCommentAdded} {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			*recorded = append(*recorded, event)
			return nil
		})
	}

	now := time.Now()
	users.Seed(domain.User{ID: "user-1", Name: "User One", Email: "u1@example.com", Role: domain.RoleUser, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "user-2", Name: "User Two", Email: "u2@example.com", Role: domain.RoleUser, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "agent-1", Name: "Agent", Email: "a@example.com", Role: domain.RoleAgent, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "admin-1", Name: "Admin", Email: "ad@example.com", Role: domain.RoleAdmin, IsActive: true, CreatedAt: now})

	return &serviceFixture{
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: tickets, UserRepo: users, CommentRepo: comments, Dispatcher: dispatcher,
		}),
		comments: NewCommentService(CommentDependencies{
			CommentRepo: comments, TicketRepo: tickets, UserRepo: users, Dispatcher: dispatcher,
		}),
		users:    users,
		ticketDB: tickets,
		events:   recorded,
	}
}

func (f *serviceFixture) mustUser(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("seed user %s missing: %v", id, err)
	}
	return u
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newServiceFixture()

	ticket, err := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "  No sound  ",
		Description: "speakers are silent",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("new tickets start OPEN, got %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority should default to MEDIUM, got %s", ticket.Priority)
	}
	if ticket.Title != "No sound" {
		t.Fatalf("title should be trimmed, got %q", ticket.Title)
	}
	if len(*f.events) != 1 || (*f.events)[0].Type != events.EventTicketCreated {
		t.Fatalf("expected one ticket-created event, got %+v", *f.events)
	}
}

func TestCreateTicketRejectsEndUserAssignee(t *testing.T) {
	f := newServiceFixture()
	assignee := "user-2"

	_, err := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:      "Help",
		AssignedTo: &assignee,
	})
	wantCode(t, err, "VALIDATION_FAILED")
}

func TestListTicketsScoping(t *testing.T) {
	f := newServiceFixture()
	if _, err := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "mine"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.tickets.CreateTicket(context.Background(), "user-2", TicketCreateInput{Title: "theirs"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	own, err := f.tickets.ListTickets(context.Background(), f.mustUser(t, "user-1"), repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 1 || own[0].Title != "mine" {
		t.Fatalf("end-users see only their own tickets, got %+v", own)
	}

	all, err := f.tickets.ListTickets(context.Background(), f.mustUser(t, "agent-1"), repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff see everything, got %d", len(all))
	}
}

func TestGetTicketAccess(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "private"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _, err = f.tickets.GetTicket(context.Background(), f.mustUser(t, "user-2"), ticket.ID)
	wantCode(t, err, "FORBIDDEN")

	got, _, err := f.tickets.GetTicket(context.Background(), f.mustUser(t, "agent-1"), ticket.ID)
	if err != nil {
		t.Fatalf("staff access: %v", err)
	}
	if got.Creator == nil || got.Creator.ID != "user-1" {
		t.Fatalf("detail view should resolve the creator relation, got %+v", got.Creator)
	}
}

func TestAddCommentRules(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "t"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.comments.AddComment(context.Background(), "user-1", ticket.ID, "   ")
	wantCode(t, err, "VALIDATION_FAILED")

	_, err = f.comments.AddComment(context.Background(), "user-2", ticket.ID, "drive-by")
	wantCode(t, err, "FORBIDDEN")

	comment, err := f.comments.AddComment(context.Background(), "agent-1", ticket.ID, "on it")
	if err != nil {
		t.Fatalf("staff comment: %v", err)
	}
	if comment.AuthorID != "agent-1" {
		t.Fatalf("unexpected author %s", comment.AuthorID)
	}
	if (*f.events)[len(*f.events)-1].Type != events.EventCommentAdded {
		t.Fatal("expected a comment-added event")
	}
}

func TestDeleteCommentAuthorOrAdmin(t *testing.T) {
	f := newServiceFixture()
	ticket, _ := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "t"})
	comment, err := f.comments.AddComment(context.Background(), "user-1", ticket.ID, "please help")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	err = f.comments.DeleteComment(context.Background(), "agent-1", comment.ID)
	wantCode(t, err, "FORBIDDEN")

	if err := f.comments.DeleteComment(context.Background(), "admin-1", comment.ID); err != nil {
		t.Fatalf("admins may delete any comment: %v", err)
	}

	second, _ := f.comments.AddComment(context.Background(), "user-1", ticket.ID, "again")
	if err := f.comments.DeleteComment(context.Background(), "user-1", second.ID); err != nil {
		t.Fatalf("authors may delete their own: %v", err)
	}
}

func TestBulkDeleteCommentsIsolation(t *testing.T) {
	f := newServiceFixture()
	ticket, _ := f.tickets.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "t"})
	c1, _ := f.comments.AddComment(context.Background(), "user-1", ticket.ID, "one")
	c2, _ := f.comments.AddComment(context.Background(), "user-1", ticket.ID, "two")

	ids := []string{c1.ID, "missing", c2.ID}
	result := f.comments.BulkDeleteComments(context.Background(), "admin-1", ids)

	if len(result.Successful)+len(result.Failed) != len(ids) {
		t.Fatalf("every input must be accounted for, got %+v", result)
	}
	if len(result.Successful) != 2 || len(result.Failed) != 1 {
		t.Fatalf("expected 2 deletes and 1 failure, got %+v", result)
	}
}
