package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// NotificationsHandler serves the per-user notification inbox.
type NotificationsHandler struct {
	store *notification.Store
}

// NewNotificationsHandler constructs the handler.
func NewNotificationsHandler(store *notification.Store) *NotificationsHandler {
	return &NotificationsHandler{store: store}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parseInt(c.Query("limit"), 20)
	offset := 0
	if v := c.Query("offset"); v != "" {
		offset = parseInt(v, 0)
	}
	userID := principal.User.ID
	items := h.store.GetUserNotifications(userID, limit, offset)
	return respond(c, fiber.StatusOK, fiber.Map{
		"notifications": items,
		"total":         h.store.Count(userID),
		"unread_count":  h.store.GetUnreadCount(userID),
	})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"unread_count": h.store.GetUnreadCount(principal.User.ID),
	})
}

// MarkRead PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Params("id")
	if !h.store.MarkAsRead(principal.User.ID, id) {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"unread_count": h.store.GetUnreadCount(principal.User.ID),
	})
}

// MarkAllRead PATCH /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	marked := h.store.MarkAllAsRead(principal.User.ID)
	return respond(c, fiber.StatusOK, fiber.Map{"marked_count": marked})
}

// Delete DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id := c.Params("id")
	if !h.store.DeleteNotification(principal.User.ID, id) {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	return respond(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// ClearAll DELETE /notifications.
func (h *NotificationsHandler) ClearAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	cleared := h.store.ClearAllNotifications(principal.User.ID)
	return respond(c, fiber.StatusOK, fiber.Map{"cleared_count": cleared})
}
