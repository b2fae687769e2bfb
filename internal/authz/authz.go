// Package authz resolves the caller of a request and guards role and
// ownership for every mutating or privacy-sensitive operation.
package authz

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
)

// Locals keys written by the JWT middleware.
const (
	LocalUserID = "userId"
	LocalRole   = "role"
)

// Caller is the resolved identity of a request. The zero value is anonymous.
type Caller struct {
	UserID uuid.UUID
	Role   models.Role
}

func Anonymous() Caller { return Caller{} }

func NewCaller(userID uuid.UUID, role models.Role) Caller {
	return Caller{UserID: userID, Role: role}
}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != uuid.Nil
}

func (c Caller) Is(role models.Role) bool {
	return c.IsAuthenticated() && c.Role == role
}

// FromContext reads the caller from fiber locals. It never touches the
// store and returns Anonymous when the locals are missing or malformed.
func FromContext(c *fiber.Ctx) Caller {
	raw, ok := c.Locals(LocalUserID).(string)
	if !ok || raw == "" {
		return Anonymous()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Anonymous()
	}
	role, _ := c.Locals(LocalRole).(string)
	return NewCaller(id, models.Role(strings.ToLower(role)))
}

// Requirement narrows what Authorize accepts.
type Requirement func(*requirements)

type requirements struct {
	role    models.Role
	owner   uuid.UUID
	ownerOK bool
}

// RequireRole demands the caller's role.
func RequireRole(role models.Role) Requirement {
	return func(r *requirements) { r.role = role }
}

// RequireOwner demands the caller's id equals ownerID.
func RequireOwner(ownerID uuid.UUID) Requirement {
	return func(r *requirements) {
		r.owner = ownerID
		r.ownerOK = true
	}
}

// Authorize checks identity, then role, then ownership. Requirement order
// does not matter; the first failing stage wins.
func Authorize(caller Caller, reqs ...Requirement) error {
	var r requirements
	for _, fn := range reqs {
		fn(&r)
	}

	if !caller.IsAuthenticated() {
		return apperr.Unauthenticated()
	}
	if r.role != "" && caller.Role != r.role {
		return apperr.WrongRole("Only " + string(r.role) + " accounts can do this")
	}
	if r.ownerOK && caller.UserID != r.owner {
		return apperr.NotOwner("You do not own this resource")
	}
	return nil
}
