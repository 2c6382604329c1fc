package notification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type composerFixture struct {
	store      *Store
	users      *repository.MemoryUserRepository
	dispatcher events.Dispatcher
}

func newComposerFixture() *composerFixture {
	users := repository.NewMemoryUserRepository()
	store := NewStore(nil, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewComposer(store, users, zap.NewNop()).RegisterHandlers(dispatcher)

	now := time.Now()
	users.Seed(domain.User{ID: "creator", Name: "Creator", Email: "c@example.com", Role: domain.RoleUser, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "agent-1", Name: "Agent One", Email: "a1@example.com", Role: domain.RoleAgent, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "admin-1", Name: "Admin One", Email: "ad@example.com", Role: domain.RoleAdmin, IsActive: true, CreatedAt: now})
	users.Seed(domain.User{ID: "ex-agent", Name: "Ex Agent", Email: "ex@example.com", Role: domain.RoleAgent, IsActive: false, CreatedAt: now})

	return &composerFixture{store: store, users: users, dispatcher: dispatcher}
}

func (f *composerFixture) user(id string) *domain.User {
	u, _ := f.users.GetByID(context.Background(), id)
	return u
}

func (f *composerFixture) publish(eventType events.EventType, ticketID string, payload any) {
	_ = f.dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt",
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (f *composerFixture) inbox(t *testing.T, userID string) []domain.Notification {
	t.Helper()
	return f.store.GetUserNotifications(userID, 0, 0)
}

func TestTicketCreatedFanout(t *testing.T) {
	f := newComposerFixture()
	assignee := "agent-1"
	ticket := &domain.Ticket{ID: "t1", Title: "Printer on fire", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityHigh, CreatedBy: "creator", AssignedTo: &assignee}

	f.publish(events.EventTicketCreated, "t1", events.TicketCreatedPayload{Ticket: ticket, Actor: f.user("creator")})

	agentInbox := f.inbox(t, "agent-1")
	if len(agentInbox) != 1 || agentInbox[0].Type != domain.NotificationTicketAssigned {
		t.Fatalf("assignee should get exactly one assignment notification, got %+v", agentInbox)
	}
	adminInbox := f.inbox(t, "admin-1")
	if len(adminInbox) != 1 || adminInbox[0].Type != domain.NotificationTicketCreated {
		t.Fatalf("other staff should get one creation notification, got %+v", adminInbox)
	}
	creatorInbox := f.inbox(t, "creator")
	if len(creatorInbox) != 1 || creatorInbox[0].Type != domain.NotificationTicketCreated {
		t.Fatalf("creator should get one confirmation, got %+v", creatorInbox)
	}
	if len(f.inbox(t, "ex-agent")) != 0 {
		t.Fatal("inactive staff must not be notified")
	}
}

func TestTicketAssignedSelfAssignWording(t *testing.T) {
	f := newComposerFixture()
	assignee := "agent-1"
	ticket := &domain.Ticket{ID: "t1", Title: "Broken VPN", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator", AssignedTo: &assignee}

	f.publish(events.EventTicketAssigned, "t1", events.TicketAssignedPayload{
		Ticket:      ticket,
		Actor:       f.user("agent-1"),
		NewAssignee: f.user("agent-1"),
	})

	agentInbox := f.inbox(t, "agent-1")
	if len(agentInbox) != 1 {
		t.Fatalf("self-assigning agent should get one notification, got %d", len(agentInbox))
	}
	if agentInbox[0].Title != "Ticket self-assigned" {
		t.Fatalf("self-assignment should use distinct wording, got %q", agentInbox[0].Title)
	}
	if len(f.inbox(t, "creator")) != 1 {
		t.Fatal("creator should hear about the assignment")
	}
}

func TestTicketReassignedNotifiesPrevious(t *testing.T) {
	f := newComposerFixture()
	assignee := "admin-1"
	ticket := &domain.Ticket{ID: "t1", Title: "Slow laptop", Status: domain.TicketStatusInProgress,
		Priority: domain.TicketPriorityLow, CreatedBy: "creator", AssignedTo: &assignee}

	f.publish(events.EventTicketAssigned, "t1", events.TicketAssignedPayload{
		Ticket:           ticket,
		Actor:            f.user("admin-1"),
		NewAssignee:      f.user("admin-1"),
		PreviousAssignee: f.user("agent-1"),
	})

	prevInbox := f.inbox(t, "agent-1")
	if len(prevInbox) != 1 || prevInbox[0].Type != domain.NotificationTicketUnassigned {
		t.Fatalf("previous assignee should get one handover notification, got %+v", prevInbox)
	}
}

func TestTicketUnassignedNotifications(t *testing.T) {
	f := newComposerFixture()
	ticket := &domain.Ticket{ID: "t1", Title: "Lost badge", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator"}

	f.publish(events.EventTicketAssigned, "t1", events.TicketAssignedPayload{
		Ticket:           ticket,
		Actor:            f.user("admin-1"),
		NewAssignee:      nil,
		PreviousAssignee: f.user("agent-1"),
	})

	if got := f.inbox(t, "agent-1"); len(got) != 1 || got[0].Type != domain.NotificationTicketUnassigned {
		t.Fatalf("previous assignee should be told, got %+v", got)
	}
	if got := f.inbox(t, "creator"); len(got) != 1 || got[0].Type != domain.NotificationTicketUnassigned {
		t.Fatalf("creator should be told, got %+v", got)
	}
	if len(f.inbox(t, "admin-1")) != 0 {
		t.Fatal("the acting admin must not notify themselves")
	}
}

func TestStatusChangedKinds(t *testing.T) {
	f := newComposerFixture()
	assignee := "agent-1"
	ticket := &domain.Ticket{ID: "t1", Title: "Flaky wifi", Status: domain.TicketStatusClosed,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator", AssignedTo: &assignee}
	actions := []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee}

	f.publish(events.EventTicketStatusChanged, "t1", events.TicketStatusChangedPayload{
		Ticket: ticket, Actor: f.user("admin-1"),
		OldStatus: domain.TicketStatusInProgress, NewStatus: domain.TicketStatusClosed,
		Comment: "fixed", AutoActions: actions,
	})

	creatorInbox := f.inbox(t, "creator")
	if len(creatorInbox) != 1 || creatorInbox[0].Type != domain.NotificationTicketClosed {
		t.Fatalf("closing should produce a ticket_closed notification, got %+v", creatorInbox)
	}
	if creatorInbox[0].Metadata["comment"] != "fixed" {
		t.Fatalf("resolution comment should ride along in metadata, got %+v", creatorInbox[0].Metadata)
	}
	if got := f.inbox(t, "agent-1"); len(got) != 1 {
		t.Fatalf("assignee should be told, got %d", len(got))
	}

	reopened := &domain.Ticket{ID: "t2", Title: "Flaky wifi", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator"}
	f.publish(events.EventTicketStatusChanged, "t2", events.TicketStatusChangedPayload{
		Ticket: reopened, Actor: f.user("admin-1"),
		OldStatus: domain.TicketStatusClosed, NewStatus: domain.TicketStatusOpen,
		Comment: "not fixed after all", AutoActions: actions,
	})

	creatorInbox = f.inbox(t, "creator")
	if creatorInbox[0].Type != domain.NotificationTicketReopened {
		t.Fatalf("reopening should produce ticket_reopened, got %s", creatorInbox[0].Type)
	}
}

func TestStatusChangedSkipsActor(t *testing.T) {
	f := newComposerFixture()
	assignee := "agent-1"
	ticket := &domain.Ticket{ID: "t1", Title: "Monitor dead", Status: domain.TicketStatusInProgress,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator", AssignedTo: &assignee}

	f.publish(events.EventTicketStatusChanged, "t1", events.TicketStatusChangedPayload{
		Ticket: ticket, Actor: f.user("agent-1"),
		OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusInProgress,
		AutoActions: []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	})

	if len(f.inbox(t, "agent-1")) != 0 {
		t.Fatal("the acting assignee must not be notified about their own change")
	}
	if len(f.inbox(t, "creator")) != 1 {
		t.Fatal("creator should still be notified")
	}
}

func TestCommentAddedDeduplicates(t *testing.T) {
	f := newComposerFixture()
	// Creator is also the assignee; one event must yield one notification.
	assignee := "creator"
	ticket := &domain.Ticket{ID: "t1", Title: "Self service", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, CreatedBy: "creator", AssignedTo: &assignee}
	comment := &domain.Comment{ID: "c1", TicketID: "t1", AuthorID: "agent-1", Body: "looking into it"}

	f.publish(events.EventCommentAdded, "t1", events.CommentAddedPayload{
		Ticket: ticket, Comment: comment, Author: f.user("agent-1"),
	})

	if got := f.inbox(t, "creator"); len(got) != 1 || got[0].Type != domain.NotificationCommentAdded {
		t.Fatalf("creator-assignee should get exactly one notification, got %+v", got)
	}
	if len(f.inbox(t, "agent-1")) != 0 {
		t.Fatal("the comment author must not be notified")
	}
}
