package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	// MaxPerUser caps each user's inbox; the oldest entry is dropped on
	// overflow.
	MaxPerUser = 50
	// DefaultRetentionDays is the cutoff for the age-based cleanup sweep.
	DefaultRetentionDays = 30
)

// Pusher delivers a stored notification to a live connection, best effort.
// PushNotification reports whether a connection received the payload.
type Pusher interface {
	PushNotification(userID string, n domain.Notification) bool
	PushUnreadCount(userID string, unread int)
}

// Store keeps per-user bounded inboxes in memory for the process lifetime.
// Notifications are lost on restart; durable queuing is out of scope.
type Store struct {
	mu      sync.RWMutex
	inboxes map[string][]domain.Notification

	deliveryMu  sync.RWMutex
	broadcaster Pusher
	fallback    Pusher

	logger *zap.Logger
}

// NewStore creates an empty store. The fallback pusher, typically the raw
// connection registry, is used only while no broadcaster is registered.
func NewStore(fallback Pusher, logger *zap.Logger) *Store {
	return &Store{
		inboxes:  make(map[string][]domain.Notification),
		fallback: fallback,
		logger:   logger,
	}
}

// SetBroadcaster registers the process-wide broadcaster. Once set, all
// real-time delivery goes through it and the fallback path is disabled,
// so a notification is never pushed twice to the same connection.
func (s *Store) SetBroadcaster(b Pusher) {
	s.deliveryMu.Lock()
	defer s.deliveryMu.Unlock()
	s.broadcaster = b
}

// CreateOptions carries the optional fields of a notification.
type CreateOptions struct {
	TicketID  *string
	CommentID *string
	ActionBy  *domain.ActorRef
	Metadata  map[string]any
}

// CreateNotification stores a new unread notification at the head of the
// recipient's inbox and attempts best-effort real-time delivery. The stored
// record is returned regardless of delivery outcome.
func (s *Store) CreateNotification(userID string, kind domain.NotificationType, title, message string, opts CreateOptions) *domain.Notification {
	n := domain.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		UserID:    userID,
		TicketID:  opts.TicketID,
		CommentID: opts.CommentID,
		ActionBy:  opts.ActionBy,
		Metadata:  opts.Metadata,
		CreatedAt: time.Now(),
		Read:      false,
	}

	s.mu.Lock()
	inbox := append([]domain.Notification{n}, s.inboxes[userID]...)
	if len(inbox) > MaxPerUser {
		inbox = inbox[:MaxPerUser]
	}
	s.inboxes[userID] = inbox
	s.mu.Unlock()

	s.deliver(userID, n)
	return &n
}

func (s *Store) deliver(userID string, n domain.Notification) {
	s.deliveryMu.RLock()
	target := s.broadcaster
	if target == nil {
		target = s.fallback
	}
	s.deliveryMu.RUnlock()

	if target == nil {
		return
	}
	if target.PushNotification(userID, n) {
		target.PushUnreadCount(userID, s.GetUnreadCount(userID))
	}
}

// GetUserNotifications returns a slice of the user's inbox, newest first.
func (s *Store) GetUserNotifications(userID string, limit, offset int) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inbox := s.inboxes[userID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(inbox) {
		return []domain.Notification{}
	}
	if limit <= 0 {
		limit = MaxPerUser
	}
	end := offset + limit
	if end > len(inbox) {
		end = len(inbox)
	}
	result := make([]domain.Notification, end-offset)
	copy(result, inbox[offset:end])
	return result
}

// Count returns the user's total inbox size.
func (s *Store) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inboxes[userID])
}

// GetUnreadCount returns the number of unread entries.
func (s *Store) GetUnreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.inboxes[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead flips one notification to read. Returns false when the id is
// not in that user's inbox.
func (s *Store) MarkAsRead(userID, notificationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[userID]
	for i := range inbox {
		if inbox[i].ID == notificationID {
			inbox[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllAsRead flips every unread entry and returns how many were flipped.
func (s *Store) MarkAllAsRead(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[userID]
	flipped := 0
	for i := range inbox {
		if !inbox[i].Read {
			inbox[i].Read = true
			flipped++
		}
	}
	return flipped
}

// DeleteNotification removes one entry. Returns false when absent.
func (s *Store) DeleteNotification(userID, notificationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[userID]
	for i := range inbox {
		if inbox[i].ID == notificationID {
			s.inboxes[userID] = append(inbox[:i], inbox[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAllNotifications empties the user's inbox and returns the count
// removed.
func (s *Store) ClearAllNotifications(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.inboxes[userID])
	delete(s.inboxes, userID)
	return removed
}

// CleanupOldNotifications removes entries older than daysOld across all
// users and returns the total removed. Invoked by the maintenance worker,
// never self-triggered.
func (s *Store) CleanupOldNotifications(daysOld int) int {
	if daysOld <= 0 {
		daysOld = DefaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, inbox := range s.inboxes {
		kept := inbox[:0]
		for _, n := range inbox {
			if n.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(s.inboxes, userID)
			continue
		}
		s.inboxes[userID] = kept
	}
	if removed > 0 && s.logger != nil {
		s.logger.Info("cleaned up old notifications", zap.Int("removed", removed))
	}
	return removed
}
