package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// userID reads the authenticated user from the X-User-ID header set by
// the edge gateway.
func userID(c *fiber.Ctx) (int64, error) {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing X-User-ID header")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid X-User-ID header")
	}

	return id, nil
}
