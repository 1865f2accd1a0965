package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/integrity-watch/report-service/internal/domain"
)

// RequireAuthenticated ensures a principal is attached.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the caller has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		if !principal.Is(allowed...) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireVerifiedPolice lets admins and verified police officers through.
func RequireVerifiedPolice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		if !principal.Is(domain.RolePolice, domain.RoleAdmin) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		if !principal.User.CanActAsPolice() {
			return fiber.NewError(http.StatusForbidden, "police account awaiting verification")
		}
		return c.Next()
	}
}
