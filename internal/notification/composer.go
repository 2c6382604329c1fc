package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Composer turns domain events into notifications, one per relevant
// recipient, never notifying the same user twice for one event.
type Composer struct {
	store  *Store
	users  repository.UserRepository
	logger *zap.Logger
}

// NewComposer creates the composer.
func NewComposer(store *Store, users repository.UserRepository, logger *zap.Logger) *Composer {
	return &Composer{store: store, users: users, logger: logger}
}

// RegisterHandlers subscribes to the dispatcher.
func (c *Composer) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, c.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketAssigned, c.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, c.handleTicketStatusChanged)
	dispatcher.Subscribe(events.EventCommentAdded, c.handleCommentAdded)
}

// recipientSet tracks who has been notified for one event.
type recipientSet map[string]struct{}

func (r recipientSet) claim(userID string) bool {
	if _, seen := r[userID]; seen {
		return false
	}
	r[userID] = struct{}{}
	return true
}

func actorRef(user *domain.User) *domain.ActorRef {
	if user == nil {
		return nil
	}
	return &domain.ActorRef{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (c *Composer) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	creator := payload.Actor
	seen := recipientSet{}
	opts := CreateOptions{TicketID: &ticket.ID, ActionBy: actorRef(creator)}

	if ticket.AssignedTo != nil && *ticket.AssignedTo != ticket.CreatedBy && seen.claim(*ticket.AssignedTo) {
		c.store.CreateNotification(*ticket.AssignedTo, domain.NotificationTicketAssigned,
			"New ticket assigned to you",
			fmt.Sprintf("Ticket %q was created and assigned to you", ticket.Title), opts)
	}

	staff, err := c.users.ListByRoles(ctx, []domain.Role{domain.RoleAgent, domain.RoleAdmin}, true)
	if err != nil {
		c.logger.Warn("could not list staff for ticket-created fanout", zap.Error(err))
	}
	for _, member := range staff {
		if member.ID == ticket.CreatedBy || !seen.claim(member.ID) {
			continue
		}
		c.store.CreateNotification(member.ID, domain.NotificationTicketCreated,
			"New ticket",
			fmt.Sprintf("Ticket %q was created", ticket.Title), opts)
	}

	if seen.claim(ticket.CreatedBy) {
		c.store.CreateNotification(ticket.CreatedBy, domain.NotificationTicketCreated,
			"Ticket created",
			fmt.Sprintf("Your ticket %q was created successfully", ticket.Title), opts)
	}
	return nil
}

func (c *Composer) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	actor := payload.Actor
	seen := recipientSet{}

	opts := CreateOptions{TicketID: &ticket.ID, ActionBy: actorRef(actor)}
	if payload.Score != nil {
		opts.Metadata = map[string]any{"score": *payload.Score}
	}

	if payload.NewAssignee != nil {
		assignee := payload.NewAssignee
		if seen.claim(assignee.ID) {
			if actor != nil && actor.ID == assignee.ID {
				c.store.CreateNotification(assignee.ID, domain.NotificationTicketAssigned,
					"Ticket self-assigned",
					fmt.Sprintf("You assigned ticket %q to yourself", ticket.Title), opts)
			} else {
				c.store.CreateNotification(assignee.ID, domain.NotificationTicketAssigned,
					"Ticket assigned to you",
					fmt.Sprintf("Ticket %q was assigned to you by %s", ticket.Title, actorName(actor)), opts)
			}
		}
		if actor == nil || ticket.CreatedBy != actor.ID {
			if seen.claim(ticket.CreatedBy) {
				c.store.CreateNotification(ticket.CreatedBy, domain.NotificationTicketAssigned,
					"Ticket assigned",
					fmt.Sprintf("Your ticket %q was assigned to %s", ticket.Title, assignee.Name), opts)
			}
		}
		if payload.PreviousAssignee != nil && (actor == nil || payload.PreviousAssignee.ID != actor.ID) {
			if seen.claim(payload.PreviousAssignee.ID) {
				c.store.CreateNotification(payload.PreviousAssignee.ID, domain.NotificationTicketUnassigned,
					"Ticket reassigned",
					fmt.Sprintf("Ticket %q was reassigned to %s", ticket.Title, assignee.Name), opts)
			}
		}
		return nil
	}

	// Unassignment: no new assignee.
	if payload.PreviousAssignee != nil && (actor == nil || payload.PreviousAssignee.ID != actor.ID) {
		if seen.claim(payload.PreviousAssignee.ID) {
			c.store.CreateNotification(payload.PreviousAssignee.ID, domain.NotificationTicketUnassigned,
				"Ticket unassigned",
				fmt.Sprintf("Ticket %q is no longer assigned to you", ticket.Title), opts)
		}
	}
	if actor == nil || ticket.CreatedBy != actor.ID {
		if seen.claim(ticket.CreatedBy) {
			c.store.CreateNotification(ticket.CreatedBy, domain.NotificationTicketUnassigned,
				"Ticket unassigned",
				fmt.Sprintf("Your ticket %q is currently unassigned", ticket.Title), opts)
		}
	}
	return nil
}

func (c *Composer) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	actor := payload.Actor
	seen := recipientSet{}

	kind := domain.NotificationTicketStatusChanged
	title := "Ticket status changed"
	switch {
	case payload.NewStatus == domain.TicketStatusClosed:
		kind = domain.NotificationTicketClosed
		title = "Ticket closed"
	case payload.OldStatus == domain.TicketStatusClosed && payload.NewStatus == domain.TicketStatusOpen:
		kind = domain.NotificationTicketReopened
		title = "Ticket reopened"
	}

	message := fmt.Sprintf("Ticket %q moved from %s to %s", ticket.Title, payload.OldStatus, payload.NewStatus)
	opts := CreateOptions{
		TicketID: &ticket.ID,
		ActionBy: actorRef(actor),
		Metadata: map[string]any{
			"old_status": string(payload.OldStatus),
			"new_status": string(payload.NewStatus),
		},
	}
	if payload.Comment != "" {
		opts.Metadata["comment"] = payload.Comment
	}

	for _, action := range payload.AutoActions {
		switch action {
		case domain.ActionNotifyCreator:
			if actor != nil && ticket.CreatedBy == actor.ID {
				continue
			}
			if seen.claim(ticket.CreatedBy) {
				c.store.CreateNotification(ticket.CreatedBy, kind, title, message, opts)
			}
		case domain.ActionNotifyAssignee:
			if ticket.AssignedTo == nil {
				continue
			}
			if actor != nil && *ticket.AssignedTo == actor.ID {
				continue
			}
			if seen.claim(*ticket.AssignedTo) {
				c.store.CreateNotification(*ticket.AssignedTo, kind, title, message, opts)
			}
		default:
			c.logger.Warn("unknown auto action", zap.String("action", string(action)))
		}
	}
	return nil
}

func (c *Composer) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	ticket := payload.Ticket
	author := payload.Author
	seen := recipientSet{}

	opts := CreateOptions{
		TicketID:  &ticket.ID,
		CommentID: &payload.Comment.ID,
		ActionBy:  actorRef(author),
	}
	message := fmt.Sprintf("%s commented on ticket %q", actorName(author), ticket.Title)

	if author == nil || ticket.CreatedBy != author.ID {
		if seen.claim(ticket.CreatedBy) {
			c.store.CreateNotification(ticket.CreatedBy, domain.NotificationCommentAdded,
				"New comment", message, opts)
		}
	}
	if ticket.AssignedTo != nil && (author == nil || *ticket.AssignedTo != author.ID) {
		if seen.claim(*ticket.AssignedTo) {
			c.store.CreateNotification(*ticket.AssignedTo, domain.NotificationCommentAdded,
				"New comment", message, opts)
		}
	}
	return nil
}

func actorName(user *domain.User) string {
	if user == nil {
		return "someone"
	}
	return user.Name
}
