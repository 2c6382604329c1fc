package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
)

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dto.OK(data))
}
