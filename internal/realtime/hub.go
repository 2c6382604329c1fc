package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notification"
)

// Hub is the process-wide broadcaster: it pushes notifications through the
// registry, fans ticket updates out to ticket rooms and services the
// inbound message protocol.
type Hub struct {
	registry *Registry
	store    *notification.Store
	logger   *zap.Logger

	roomsMu sync.RWMutex
	rooms   map[string]map[string]struct{} // ticketID -> member userIDs
}

// NewHub creates the hub and registers it as the store's broadcaster, which
// disables the store's direct-emit fallback.
func NewHub(registry *Registry, store *notification.Store, logger *zap.Logger) *Hub {
	hub := &Hub{
		registry: registry,
		store:    store,
		logger:   logger,
		rooms:    make(map[string]map[string]struct{}),
	}
	store.SetBroadcaster(hub)
	return hub
}

// PushNotification implements notification.Pusher: it consults the registry
// and emits, or silently no-ops when the recipient is offline.
func (h *Hub) PushNotification(userID string, n domain.Notification) bool {
	return h.registry.PushNotification(userID, n)
}

// PushUnreadCount implements notification.Pusher.
func (h *Hub) PushUnreadCount(userID string, unread int) {
	h.registry.PushUnreadCount(userID, unread)
}

// RegisterEventHandlers subscribes the hub to ticket events so room members
// see live updates.
func (h *Hub) RegisterEventHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketStatusChanged, h.handleTicketEvent)
	dispatcher.Subscribe(events.EventTicketAssigned, h.handleTicketEvent)
	dispatcher.Subscribe(events.EventCommentAdded, h.handleTicketEvent)
}

func (h *Hub) handleTicketEvent(ctx context.Context, event events.Event) error {
	var updatedBy *string
	data := map[string]any{}

	switch payload := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		if payload.Actor != nil {
			updatedBy = &payload.Actor.ID
		}
		data["oldStatus"] = payload.OldStatus
		data["newStatus"] = payload.NewStatus
	case events.TicketAssignedPayload:
		if payload.Actor != nil {
			updatedBy = &payload.Actor.ID
		}
		if payload.NewAssignee != nil {
			data["assignedTo"] = payload.NewAssignee.ID
		}
	case events.CommentAddedPayload:
		if payload.Author != nil {
			updatedBy = &payload.Author.ID
		}
		data["commentId"] = payload.Comment.ID
	}

	h.BroadcastTicketUpdate(event.TicketID, string(event.Type), data, updatedBy)
	return nil
}

// JoinTicket adds the user to a ticket-scoped sub-channel.
func (h *Hub) JoinTicket(userID, ticketID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	members, ok := h.rooms[ticketID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[ticketID] = members
	}
	members[userID] = struct{}{}
}

// LeaveTicket removes the user from a ticket room.
func (h *Hub) LeaveTicket(userID, ticketID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if members, ok := h.rooms[ticketID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, ticketID)
		}
	}
}

// LeaveAll removes the user from every room, used at disconnect.
func (h *Hub) LeaveAll(userID string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for ticketID, members := range h.rooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, ticketID)
		}
	}
}

// RoomMembers returns the ids of users joined to a ticket room.
func (h *Hub) RoomMembers(ticketID string) []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	members := make([]string, 0, len(h.rooms[ticketID]))
	for userID := range h.rooms[ticketID] {
		members = append(members, userID)
	}
	return members
}

// BroadcastTicketUpdate pushes an update to every member of the ticket
// room. Users who never joined see nothing.
func (h *Hub) BroadcastTicketUpdate(ticketID, updateType string, data interface{}, updatedBy *string) {
	message := TicketUpdateMessage{
		Type:       "ticket_update",
		TicketID:   ticketID,
		UpdateType: updateType,
		Data:       data,
		UpdatedBy:  updatedBy,
		Timestamp:  time.Now(),
	}
	for _, member := range h.RoomMembers(ticketID) {
		h.registry.Send(member, message)
	}
}

func (h *Hub) broadcastTyping(userID, ticketID string, started bool) {
	kind := "user_typing"
	if !started {
		kind = "user_stopped_typing"
	}
	message := TypingMessage{
		Type:      kind,
		UserID:    userID,
		TicketID:  ticketID,
		Timestamp: time.Now(),
	}
	for _, member := range h.RoomMembers(ticketID) {
		if member == userID {
			continue
		}
		h.registry.Send(member, message)
	}
}

// HandleInbound processes one client message. Malformed or unknown input
// yields an error event on the same connection, never a disconnect.
func (h *Hub) HandleInbound(userID string, raw []byte) {
	var message InboundMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		h.registry.Send(userID, ErrorMessage{Type: "error", Message: "malformed message"})
		return
	}

	switch message.Type {
	case "join_ticket":
		if message.TicketID == "" {
			h.registry.Send(userID, ErrorMessage{Type: "error", Message: "ticketId required"})
			return
		}
		h.JoinTicket(userID, message.TicketID)
	case "leave_ticket":
		h.LeaveTicket(userID, message.TicketID)
	case "typing_start":
		h.broadcastTyping(userID, message.TicketID, true)
	case "typing_stop":
		h.broadcastTyping(userID, message.TicketID, false)
	case "notification_ack":
		if !h.store.MarkAsRead(userID, message.NotificationID) {
			h.logger.Debug("ack for unknown notification",
				zap.String("user_id", userID),
				zap.String("notification_id", message.NotificationID))
		} else {
			h.registry.PushUnreadCount(userID, h.store.GetUnreadCount(userID))
		}
	case "get_notifications":
		list := h.store.GetUserNotifications(userID, message.Limit, message.Offset)
		limit := message.Limit
		if limit <= 0 {
			limit = notification.MaxPerUser
		}
		h.registry.Send(userID, NotificationsListMessage{
			Type:          "notifications_list",
			Notifications: list,
			HasMore:       message.Offset+limit < h.store.Count(userID),
			UnreadCount:   h.store.GetUnreadCount(userID),
			Timestamp:     time.Now(),
		})
	case "mark_all_read":
		marked := h.store.MarkAllAsRead(userID)
		h.registry.Send(userID, AllReadMessage{
			Type:        "all_notifications_read",
			MarkedCount: marked,
			Timestamp:   time.Now(),
		})
	case "ping":
		h.registry.Send(userID, PongMessage{Type: "pong", Timestamp: time.Now()})
	default:
		h.registry.Send(userID, ErrorMessage{Type: "error", Message: "unknown message type"})
	}
}

// Connect registers the connection and Disconnect tears it down.
func (h *Hub) Connect(userID string, conn Conn) {
	h.registry.Register(userID, conn)
}

// Disconnect unregisters the connection and leaves all rooms.
func (h *Hub) Disconnect(userID string, conn Conn) {
	h.registry.Unregister(userID, conn)
	h.LeaveAll(userID)
}
