package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/service"
	"github.com/integrity-watch/report-service/internal/validation"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// currentUser returns the authenticated caller.
func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

// optionalUser returns the caller when a valid token was supplied.
func optionalUser(c *fiber.Ctx) *domain.User {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.User
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, v *validation.Validator, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return v.Struct(dst)
}

func pathID(c *fiber.Ctx) (primitive.ObjectID, error) {
	return service.ParseID(c.Params("id"), "id")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
