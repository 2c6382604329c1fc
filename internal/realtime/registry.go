package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Conn is the minimal connection surface the registry needs. Satisfied by
// *websocket.Conn; tests substitute a recording fake.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// client serializes writes to a single connection.
type client struct {
	userID string
	conn   Conn
	mu     sync.Mutex
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Registry maps a user identity to at most one live connection. A new
// connection for the same user replaces the previous mapping and the
// displaced connection is closed without notice (last-connect-wins; single
// session per user is intentional policy).
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*client
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*client),
		logger: logger,
	}
}

// Register binds the connection to the user, displacing any previous one.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	previous := r.conns[userID]
	r.conns[userID] = &client{userID: userID, conn: conn}
	r.mu.Unlock()

	if previous != nil {
		_ = previous.conn.Close()
		r.logger.Debug("replaced existing connection", zap.String("user_id", userID))
	}
}

// Unregister removes the mapping, but only if it still points at conn —
// a replacement connection must not be torn down by the old one's cleanup.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current.conn == conn {
		delete(r.conns, userID)
	}
}

// IsConnected reports whether the user has a live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Send writes v to the user's connection if one exists. Write failures are
// logged and otherwise ignored.
func (r *Registry) Send(userID string, v interface{}) bool {
	r.mu.RLock()
	target := r.conns[userID]
	r.mu.RUnlock()

	if target == nil {
		return false
	}
	if err := target.send(v); err != nil {
		r.logger.Warn("websocket write failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return true
}

// PushNotification implements the direct-emit fallback delivery path.
func (r *Registry) PushNotification(userID string, n domain.Notification) bool {
	return r.Send(userID, NotificationMessage{Type: "notification", Data: n})
}

// PushUnreadCount sends an updated unread counter to the user.
func (r *Registry) PushUnreadCount(userID string, unread int) {
	r.Send(userID, NotificationCountMessage{
		Type:        "notification_count",
		UnreadCount: unread,
		Timestamp:   time.Now(),
	})
}
