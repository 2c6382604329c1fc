package realtime

import (
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notification"
)

// fakeConn records everything written to it.
type fakeConn struct {
	written []interface{}
	closed  bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newHubFixture() (*Hub, *Registry, *notification.Store) {
	registry := NewRegistry(zap.NewNop())
	store := notification.NewStore(registry, zap.NewNop())
	hub := NewHub(registry, store, zap.NewNop())
	return hub, registry, store
}

func lastMessage(t *testing.T, conn *fakeConn) interface{} {
	t.Helper()
	if len(conn.written) == 0 {
		t.Fatal("expected at least one message on the connection")
	}
	return conn.written[len(conn.written)-1]
}

func TestLastConnectWins(t *testing.T) {
	_, registry, _ := newHubFixture()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Register("u1", first)
	registry.Register("u1", second)

	if !first.closed {
		t.Fatal("the displaced connection must be closed")
	}
	if second.closed {
		t.Fatal("the new connection must stay open")
	}

	registry.Send("u1", PongMessage{Type: "pong"})
	if len(second.written) != 1 {
		t.Fatalf("messages should reach the new connection, got %d", len(second.written))
	}
	if len(first.written) != 0 {
		t.Fatalf("the old connection must receive nothing, got %d", len(first.written))
	}

	// The old connection's cleanup must not tear down the replacement.
	registry.Unregister("u1", first)
	if !registry.IsConnected("u1") {
		t.Fatal("stale unregister must not remove the new connection")
	}
	registry.Unregister("u1", second)
	if registry.IsConnected("u1") {
		t.Fatal("unregistering the current connection should remove the mapping")
	}
}

func TestHubBecomesExclusiveBroadcaster(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	store := notification.NewStore(registry, zap.NewNop())
	NewHub(registry, store, zap.NewNop())

	conn := &fakeConn{}
	registry.Register("u1", conn)

	store.CreateNotification("u1", domain.NotificationTicketAssigned, "t", "m", notification.CreateOptions{})

	// One notification push plus one unread counter; a second copy of
	// either would mean both delivery paths fired.
	if len(conn.written) != 2 {
		t.Fatalf("expected exactly 2 messages (notification + count), got %d", len(conn.written))
	}
	if _, ok := conn.written[0].(NotificationMessage); !ok {
		t.Fatalf("first message should be the notification, got %T", conn.written[0])
	}
	count, ok := conn.written[1].(NotificationCountMessage)
	if !ok {
		t.Fatalf("second message should be the unread count, got %T", conn.written[1])
	}
	if count.UnreadCount != 1 {
		t.Fatalf("expected unread count 1, got %d", count.UnreadCount)
	}
}

func TestRoomBroadcastOnlyReachesMembers(t *testing.T) {
	hub, registry, _ := newHubFixture()
	member := &fakeConn{}
	outsider := &fakeConn{}
	registry.Register("member", member)
	registry.Register("outsider", outsider)

	hub.JoinTicket("member", "t1")
	hub.BroadcastTicketUpdate("t1", "status_changed", map[string]any{"newStatus": "CLOSED"}, nil)

	if len(member.written) != 1 {
		t.Fatalf("room member should receive the update, got %d", len(member.written))
	}
	if len(outsider.written) != 0 {
		t.Fatalf("non-members must see nothing, got %d", len(outsider.written))
	}

	hub.LeaveTicket("member", "t1")
	hub.BroadcastTicketUpdate("t1", "status_changed", nil, nil)
	if len(member.written) != 1 {
		t.Fatal("updates must stop after leaving the room")
	}
}

func TestTypingExcludesSender(t *testing.T) {
	hub, registry, _ := newHubFixture()
	typer := &fakeConn{}
	watcher := &fakeConn{}
	registry.Register("typer", typer)
	registry.Register("watcher", watcher)
	hub.JoinTicket("typer", "t1")
	hub.JoinTicket("watcher", "t1")

	hub.HandleInbound("typer", []byte(`{"type":"typing_start","ticketId":"t1"}`))

	if len(typer.written) != 0 {
		t.Fatalf("the typing user must not receive their own signal, got %d", len(typer.written))
	}
	msg, ok := lastMessage(t, watcher).(TypingMessage)
	if !ok {
		t.Fatalf("expected TypingMessage, got %T", lastMessage(t, watcher))
	}
	if msg.Type != "user_typing" || msg.UserID != "typer" {
		t.Fatalf("unexpected typing message %+v", msg)
	}
}

func TestHandleInboundJoinRequiresTicketID(t *testing.T) {
	hub, registry, _ := newHubFixture()
	conn := &fakeConn{}
	registry.Register("u1", conn)

	hub.HandleInbound("u1", []byte(`{"type":"join_ticket"}`))

	msg, ok := lastMessage(t, conn).(ErrorMessage)
	if !ok {
		t.Fatalf("expected ErrorMessage, got %T", lastMessage(t, conn))
	}
	if msg.Message != "ticketId required" {
		t.Fatalf("unexpected error message %q", msg.Message)
	}
	if len(hub.RoomMembers("")) != 0 {
		t.Fatal("no room should be created")
	}
}

func TestHandleInboundUnknownAndMalformed(t *testing.T) {
	hub, registry, _ := newHubFixture()
	conn := &fakeConn{}
	registry.Register("u1", conn)

	hub.HandleInbound("u1", []byte(`{"type":"warp_drive"}`))
	if msg := lastMessage(t, conn).(ErrorMessage); msg.Message != "unknown message type" {
		t.Fatalf("unexpected error message %q", msg.Message)
	}

	hub.HandleInbound("u1", []byte(`{not json`))
	if msg := lastMessage(t, conn).(ErrorMessage); msg.Message != "malformed message" {
		t.Fatalf("unexpected error message %q", msg.Message)
	}

	if !registry.IsConnected("u1") {
		t.Fatal("bad input must never disconnect the client")
	}
}

func TestNotificationAck(t *testing.T) {
	hub, registry, store := newHubFixture()
	conn := &fakeConn{}
	registry.Register("u1", conn)

	n := store.CreateNotification("u1", domain.NotificationCommentAdded, "t", "m", notification.CreateOptions{})
	before := len(conn.written)

	hub.HandleInbound("u1", []byte(`{"type":"notification_ack","notificationId":"`+n.ID+`"}`))
	count, ok := lastMessage(t, conn).(NotificationCountMessage)
	if !ok {
		t.Fatalf("expected a count update after ack, got %T", lastMessage(t, conn))
	}
	if count.UnreadCount != 0 {
		t.Fatalf("expected 0 unread after ack, got %d", count.UnreadCount)
	}

	// Unknown ids are ignored without a reply and without disconnecting.
	hub.HandleInbound("u1", []byte(`{"type":"notification_ack","notificationId":"missing"}`))
	if len(conn.written) != before+1 {
		t.Fatalf("unknown ack should produce no reply, got %d messages", len(conn.written)-before)
	}
}

func TestGetNotificationsHasMore(t *testing.T) {
	hub, registry, store := newHubFixture()
	conn := &fakeConn{}
	registry.Register("u1", conn)

	for i := 0; i < 5; i++ {
		store.CreateNotification("u1", domain.NotificationTicketCreated, "t", "m", notification.CreateOptions{})
	}

	hub.HandleInbound("u1", []byte(`{"type":"get_notifications","limit":2,"offset":0}`))
	list, ok := lastMessage(t, conn).(NotificationsListMessage)
	if !ok {
		t.Fatalf("expected NotificationsListMessage, got %T", lastMessage(t, conn))
	}
	if len(list.Notifications) != 2 || !list.HasMore {
		t.Fatalf("expected 2 of 5 with more remaining, got %d (hasMore=%v)", len(list.Notifications), list.HasMore)
	}

	hub.HandleInbound("u1", []byte(`{"type":"get_notifications","limit":5,"offset":0}`))
	list = lastMessage(t, conn).(NotificationsListMessage)
	if list.HasMore {
		t.Fatal("hasMore should be false when the whole inbox fits the page")
	}
}

func TestMarkAllReadOverSocket(t *testing.T) {
	hub, registry, store := newHubFixture()
	conn := &fakeConn{}
	registry.Register("u1", conn)
	store.CreateNotification("u1", domain.NotificationTicketClosed, "t", "m", notification.CreateOptions{})
	store.CreateNotification("u1", domain.NotificationTicketClosed, "t2", "m", notification.CreateOptions{})

	hub.HandleInbound("u1", []byte(`{"type":"mark_all_read"}`))
	msg, ok := lastMessage(t, conn).(AllReadMessage)
	if !ok {
		t.Fatalf("expected AllReadMessage, got %T", lastMessage(t, conn))
	}
	if msg.MarkedCount != 2 {
		t.Fatalf("expected 2 marked, got %d", msg.MarkedCount)
	}
}

func TestDisconnectLeavesRooms(t *testing.T) {
	hub, registry, _ := newHubFixture()
	conn := &fakeConn{}
	hub.Connect("u1", conn)
	hub.JoinTicket("u1", "t1")
	hub.JoinTicket("u1", "t2")

	hub.Disconnect("u1", conn)

	if registry.IsConnected("u1") {
		t.Fatal("disconnect should unregister the connection")
	}
	if len(hub.RoomMembers("t1")) != 0 || len(hub.RoomMembers("t2")) != 0 {
		t.Fatal("disconnect should leave every room")
	}
}
