package middleware

import (
	"devpath/backend/config"
	"devpath/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates the JWT and stores the user identity in locals
// for the handlers downstream.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := utils.ParseToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals("userID", userID)
		c.Locals("role", role)
		return c.Next()
	}
}

// AdminMiddleware restricts a route to admin users. Must run after
// AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role != "admin" {
			return utils.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// UserID reads the authenticated user id set by AuthMiddleware.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
