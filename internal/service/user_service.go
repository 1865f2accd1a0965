package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// UserService implements administrator account management.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo repository.UserRepository
}

// CreateUserInput provisions an account of any role.
type CreateUserInput struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	Role        domain.Role
	BadgeNumber string
	Location    domain.Location
}

// UserQuery filters the admin listing.
type UserQuery struct {
	Role       *domain.Role
	IsActive   *bool
	IsVerified *bool
	State      string
	Search     string
	Page       int
	Limit      int
}

// UserPage is one page of accounts.
type UserPage struct {
	Items []domain.User
	Total int64
	Page  int
	Limit int
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, bcryptCost: cfg.Auth.BcryptCost}
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, q UserQuery) (*UserPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:       q.Role,
		IsActive:   q.IsActive,
		IsVerified: q.IsVerified,
		State:      q.State,
		Search:     q.Search,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &UserPage{Items: users, Total: total, Page: page, Limit: limit}, nil
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// Create provisions an account. Accounts made by an administrator skip email verification and
// police accounts start verified.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if !in.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": in.Role})
	}
	if in.Role == domain.RolePolice && strings.TrimSpace(in.BadgeNumber) == "" {
		return nil, apperrors.NewValidationError("badge number is required for police accounts", map[string]any{"badgeNumber": "required"})
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:            strings.TrimSpace(in.Name),
		Email:           in.Email,
		PasswordHash:    hash,
		Phone:           strings.TrimSpace(in.Phone),
		Role:            in.Role,
		Location:        trimLocation(in.Location),
		BadgeNumber:     strings.TrimSpace(in.BadgeNumber),
		IsActive:        true,
		IsEmailVerified: true,
		IsVerified:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// UpdateRole changes an account's role. Administrators cannot demote themselves.
func (s *UserService) UpdateRole(ctx context.Context, actorID, id primitive.ObjectID, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if actorID == id && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("administrators cannot change their own role", nil)
	}
	return s.patch(ctx, id, repository.UserPatch{Role: &role})
}

// SetActive enables or disables login. Administrators cannot deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actorID, id primitive.ObjectID, active bool) (*domain.User, error) {
	if actorID == id && !active {
		return nil, apperrors.NewValidationError("administrators cannot deactivate themselves", nil)
	}
	return s.patch(ctx, id, repository.UserPatch{IsActive: &active})
}

// Verify approves a police account so it can act on reports.
func (s *UserService) Verify(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	if user.Role != domain.RolePolice {
		return nil, apperrors.NewValidationError("only police accounts require verification", nil)
	}
	verified := true
	return s.patch(ctx, user.ID, repository.UserPatch{IsVerified: &verified})
}

// ListOfficers returns active verified police, optionally in one state.
func (s *UserService) ListOfficers(ctx context.Context, state string) ([]domain.User, error) {
	role := domain.RolePolice
	active, verified := true, true
	users, _, err := s.users.List(ctx, repository.UserFilter{
		Role:       &role,
		IsActive:   &active,
		IsVerified: &verified,
		State:      state,
		Limit:      100,
	})
	return users, err
}

func (s *UserService) patch(ctx context.Context, id primitive.ObjectID, patch repository.UserPatch) (*domain.User, error) {
	user, err := s.users.Patch(ctx, id, patch)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// normalizePage applies 1-based paging with the default and maximum page sizes.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
