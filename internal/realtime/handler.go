package realtime

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const userIDKey = "ws_user_id"

// UpgradeMiddleware authenticates the handshake before any upgrade. A
// missing or invalid credential rejects the connection outright; nothing is
// ever half-registered.
func UpgradeMiddleware(tokens *auth.TokenManager, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return apperrors.NewUnauthorized("missing token")
		}
		claims, err := tokens.ParseToken(token)
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		user, err := users.GetByID(c.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			return apperrors.NewUnauthorized("unknown or inactive user")
		}
		c.Locals(userIDKey, user.ID)
		return c.Next()
	}
}

// Handler serves an authenticated websocket session: registers the
// connection, pumps inbound messages through the hub and tears everything
// down on disconnect.
func Handler(hub *Hub, logger *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(userIDKey).(string)
		if !ok || userID == "" {
			_ = conn.Close()
			return
		}

		hub.Connect(userID, conn)
		defer hub.Disconnect(userID, conn)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				logger.Debug("websocket closed", zap.String("user_id", userID), zap.Error(err))
				return
			}
			hub.HandleInbound(userID, raw)
		}
	})
}
