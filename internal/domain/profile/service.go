package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	callerCacheTTL    = time.Minute
)

type RegisterInput struct {
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UpdateInput changes a profile. Role and Status are honoured for admins only.
type UpdateInput struct {
	FullName  *string       `json:"full_name,omitempty"`
	Email     *string       `json:"email,omitempty"`
	AvatarURL *string       `json:"avatar_url,omitempty"`
	Role      *authz.Role   `json:"role,omitempty"`
	Status    *authz.Status `json:"status,omitempty"`
}

// Cache is the subset of the Redis client used to memoise resolved callers
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SessionRevoker drops live sessions of a deactivated or deleted user
type SessionRevoker interface {
	InvalidateUserSessions(userID uuid.UUID) []*auth.Session
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Profile, error)
	Authenticate(ctx context.Context, email, password string) (*Profile, error)
	ResolveCaller(ctx context.Context, id uuid.UUID) (authz.Caller, error)
	Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Profile, error)
	List(ctx context.Context, caller authz.Caller, filter ProfileFilter) ([]Profile, int64, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*Profile, error)
	ChangePassword(ctx context.Context, caller authz.Caller, current, next string) error
	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error
	ListActiveAdmins(ctx context.Context) ([]Profile, error)
}

type service struct {
	repo     Repository
	policy   *authz.Evaluator
	cache    Cache
	sessions SessionRevoker
	logger   *zap.Logger
}

func NewService(repo Repository, policy *authz.Evaluator, cache Cache, sessions SessionRevoker, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		policy:   policy,
		cache:    cache,
		sessions: sessions,
		logger:   logger,
	}
}

func callerCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("profile:caller:%s", id)
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func validateRegisterInput(input RegisterInput) error {
	if strings.TrimSpace(input.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if !validEmail(strings.TrimSpace(input.Email)) {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// Register creates an employee profile. The very first profile becomes the admin;
// the repository decides that atomically with the insert.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("checking email existence: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	profile := &Profile{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(input.FullName),
		Email:        normalizeEmail(input.Email),
		Role:         authz.RoleEmployee,
		Status:       authz.StatusActive,
		AvatarURL:    input.AvatarURL,
		PasswordHash: string(hashedPassword),
	}

	if err := s.policy.Check(profile.Caller(), authz.TableProfiles, authz.ActionInsert, authz.Subject{OwnerID: profile.ID}); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRegistered(ctx, profile); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	s.logger.Info("Profile registered",
		zap.String("profile_id", profile.ID.String()),
		zap.String("role", string(profile.Role)))
	return profile, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Profile, error) {
	profile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !profile.IsActive() {
		return nil, ErrAccountInactive
	}

	now := time.Now().UTC()
	profile.LastLoginAt = &now
	if err := s.repo.Update(ctx, profile); err != nil {
		s.logger.Warn("Failed to record last login", zap.Error(err))
	}

	return profile, nil
}

// ResolveCaller loads the current role and status of an authenticated user
func (s *service) ResolveCaller(ctx context.Context, id uuid.UUID) (authz.Caller, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, callerCacheKey(id)); err == nil {
			var caller authz.Caller
			if err := json.Unmarshal([]byte(cached), &caller); err == nil {
				return caller, nil
			}
		}
	}

	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return authz.Caller{}, err
	}
	caller := profile.Caller()

	if s.cache != nil {
		if data, err := json.Marshal(caller); err == nil {
			if err := s.cache.Set(ctx, callerCacheKey(id), string(data), callerCacheTTL); err != nil {
				s.logger.Debug("Failed to cache caller", zap.Error(err))
			}
		}
	}
	return caller, nil
}

func (s *service) forget(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, callerCacheKey(id)); err != nil {
		s.logger.Debug("Failed to evict cached caller", zap.Error(err))
	}
}

func (s *service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Profile, error) {
	if err := s.policy.Check(caller, authz.TableProfiles, authz.ActionSelect, authz.Subject{OwnerID: id}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, caller authz.Caller, filter ProfileFilter) ([]Profile, int64, error) {
	if err := authz.RequireView(caller, authz.ViewUsers); err != nil {
		return nil, 0, err
	}
	profiles, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	visible := authz.Filter(s.policy, caller, authz.TableProfiles, profiles, func(p Profile) authz.Subject {
		return authz.Subject{OwnerID: p.ID}
	})
	return visible, total, nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roleChanged := input.Role != nil && *input.Role != profile.Role
	statusChanged := input.Status != nil && *input.Status != profile.Status

	subject := authz.Subject{OwnerID: profile.ID, ChangesRoleOrStatus: roleChanged || statusChanged}
	if err := s.policy.Check(caller, authz.TableProfiles, authz.ActionUpdate, subject); err != nil {
		return nil, err
	}

	if roleChanged && !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	if statusChanged && !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	losesAdmin := profile.Role == authz.RoleAdmin && profile.IsActive() &&
		((roleChanged && *input.Role != authz.RoleAdmin) || (statusChanged && *input.Status != authz.StatusActive))
	if losesAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if input.FullName != nil {
		if strings.TrimSpace(*input.FullName) == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", ErrInvalidInput)
		}
		profile.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if !validEmail(email) {
			return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
		}
		profile.Email = email
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = input.AvatarURL
	}
	if roleChanged {
		profile.Role = *input.Role
	}
	if statusChanged {
		profile.Status = *input.Status
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, err
	}
	s.forget(ctx, profile.ID)

	if statusChanged && !profile.IsActive() && s.sessions != nil {
		dropped := s.sessions.InvalidateUserSessions(profile.ID)
		s.logger.Info("Profile deactivated",
			zap.String("profile_id", profile.ID.String()),
			zap.Int("sessions_dropped", len(dropped)))
	}
	if roleChanged {
		s.logger.Info("Profile role changed",
			zap.String("profile_id", profile.ID.String()),
			zap.String("role", string(profile.Role)),
			zap.String("changed_by", caller.ID.String()))
	}

	return profile, nil
}

func (s *service) ensureAnotherAdmin(ctx context.Context) error {
	admins, err := s.repo.CountActiveByRole(ctx, authz.RoleAdmin)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, caller authz.Caller, current, next string) error {
	profile, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableProfiles, authz.ActionUpdate, authz.Subject{OwnerID: profile.ID}); err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	profile.PasswordHash = string(hashed)
	return s.repo.Update(ctx, profile)
}

func (s *service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Check(caller, authz.TableProfiles, authz.ActionDelete, authz.Subject{OwnerID: profile.ID}); err != nil {
		return err
	}
	if profile.Role == authz.RoleAdmin && profile.IsActive() {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.forget(ctx, id)
	if s.sessions != nil {
		s.sessions.InvalidateUserSessions(id)
	}
	return nil
}

func (s *service) ListActiveAdmins(ctx context.Context) ([]Profile, error) {
	role := authz.RoleAdmin
	status := authz.StatusActive
	admins, _, err := s.repo.FindAll(ctx, ProfileFilter{Role: &role, Status: &status, PageSize: 1000})
	return admins, err
}
