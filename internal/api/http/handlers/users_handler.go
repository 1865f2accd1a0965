package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/integrity-watch/report-service/internal/api/dto"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/service"
	"github.com/integrity-watch/report-service/internal/validation"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// UsersHandler exposes administrator account management.
type UsersHandler struct {
	users     *service.UserService
	validator *validation.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, v *validation.Validator) *UsersHandler {
	return &UsersHandler{users: userService, validator: v}
}

// List GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	q := service.UserQuery{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		if !role.Valid() {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		q.Role = &role
	}
	var err error
	if q.IsActive, err = queryBool(c, "isActive"); err != nil {
		return err
	}
	if q.IsVerified, err = queryBool(c, "isVerified"); err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page.Items, "meta": dto.NewMeta(page.Page, page.Limit, page.Total)})
}

// Create POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Role:        domain.Role(req.Role),
		BadgeNumber: req.BadgeNumber,
		Location:    req.Location.ToDomain(),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, user)
}

// ListOfficers GET /api/users/officers?state=.
func (h *UsersHandler) ListOfficers(c *fiber.Ctx) error {
	officers, err := h.users.ListOfficers(c.UserContext(), c.Query("state"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, officers)
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, user)
}

// UpdateRole PATCH /api/users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateRole(c.UserContext(), actor.ID, id, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, user)
}

// UpdateStatus PATCH /api/users/:id/status.
func (h *UsersHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserStatusRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	user, err := h.users.SetActive(c.UserContext(), actor.ID, id, *req.IsActive)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, user)
}

// Verify PATCH /api/users/:id/verify.
func (h *UsersHandler) Verify(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.users.Verify(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, user)
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid boolean filter", map[string]any{key: raw})
	}
	return &v, nil
}
