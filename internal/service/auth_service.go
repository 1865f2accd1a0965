package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/repository"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and account recovery.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	verifyTTL  time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// RegisterInput is a citizen sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Location domain.Location
}

// ProfileInput changes self-editable fields; nil leaves a field untouched.
type ProfileInput struct {
	Name     *string
	Phone    *string
	Location *domain.Location
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		verifyTTL:  time.Duration(cfg.Auth.EmailVerificationTTLHours) * time.Hour,
		now:        time.Now,
	}
}

// Register creates a citizen account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	rawToken, digest := auth.NewOpaqueToken()
	expiresAt := s.now().Add(s.verifyTTL).UTC()

	user := &domain.User{
		Name:              strings.TrimSpace(in.Name),
		Email:             in.Email,
		PasswordHash:      hash,
		Phone:             strings.TrimSpace(in.Phone),
		Role:              domain.RoleCitizen,
		Location:          trimLocation(in.Location),
		IsActive:          true,
		EmailVerification: &domain.TokenDigest{Hash: digest, ExpiresAt: expiresAt},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user")
	}

	s.publish(ctx, events.New(events.EventUserRegistered, events.UserRegisteredPayload{
		UserID:            user.ID.Hex(),
		Name:              user.Name,
		Email:             user.Email,
		VerificationToken: rawToken,
		ExpiresAt:         expiresAt,
	}).By(user.ID.Hex()))

	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account is deactivated")
	}
	now := s.now().UTC()
	user.LastLoginAt = &now
	if _, err := s.users.Patch(ctx, user.ID, repository.UserPatch{LastLoginAt: &now}); err != nil {
		s.logger.Warn("record last login", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// UpdateProfile edits the caller's name, phone and location.
func (s *AuthService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*domain.User, error) {
	var patch repository.UserPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		patch.Phone = &phone
	}
	if in.Location != nil {
		location := trimLocation(*in.Location)
		patch.Location = &location
	}
	user, err := s.users.Patch(ctx, id, patch)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, id primitive.ObjectID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "user")
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.users.Patch(ctx, user.ID, repository.UserPatch{PasswordHash: &hash})
	return mapRepoError(err, "user")
}

// VerifyEmail consumes an email verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.users.GetByVerificationHash(ctx, auth.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewValidationError("verification token is invalid or expired", nil)
		}
		return nil, err
	}
	if user.EmailVerification == nil || s.now().After(user.EmailVerification.ExpiresAt) {
		return nil, apperrors.NewValidationError("verification token is invalid or expired", nil)
	}
	verified := true
	user, err = s.users.Patch(ctx, user.ID, repository.UserPatch{IsEmailVerified: &verified, ClearEmailVerification: true})
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// RequestPasswordReset stores a reset token and triggers the reset mail.
// Unknown or inactive addresses succeed silently so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	rawToken, digest := auth.NewOpaqueToken()
	reset := &domain.PasswordReset{
		UserID:    user.ID.Hex(),
		TokenHash: digest,
		ExpiresAt: s.now().Add(s.resetTTL).UTC(),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventPasswordResetRequested, events.PasswordResetRequestedPayload{
		UserID:    user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Token:     rawToken,
		ExpiresAt: reset.ExpiresAt,
	}).By(user.ID.Hex()))
	return nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	invalid := apperrors.NewValidationError("reset token is invalid or expired", nil)

	reset, err := s.resets.GetByTokenHash(ctx, auth.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return invalid
		}
		return err
	}
	if reset.UsedAt != nil || s.now().After(reset.ExpiresAt) {
		return invalid
	}
	userID, err := primitive.ObjectIDFromHex(reset.UserID)
	if err != nil {
		return invalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return mapRepoError(err, "user")
	}

	if err := s.resets.MarkUsed(ctx, reset.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return invalid
		}
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.users.Patch(ctx, user.ID, repository.UserPatch{PasswordHash: &hash})
	return mapRepoError(err, "user")
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ primitive.ObjectID) error {
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func trimLocation(loc domain.Location) domain.Location {
	return domain.Location{City: strings.TrimSpace(loc.City), State: strings.TrimSpace(loc.State)}
}
