package user

import "github.com/gofiber/fiber/v2"

const (
	localUserID = "user_id"
	localRole   = "role"
)

// SetCurrent stores the authenticated identity on the request.
func SetCurrent(c *fiber.Ctx, id string, role Role) {
	c.Locals(localUserID, id)
	c.Locals(localRole, role)
}

func CurrentID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func CurrentRole(c *fiber.Ctx) Role {
	r, _ := c.Locals(localRole).(Role)
	return r
}

// RoleGate builds a handler that admits only the listed roles.
type RoleGate func(roles ...Role) fiber.Handler
