package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the interface for owner account logic
type Service interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	EnsureOwner(ctx context.Context, name, email, password string) (*User, error)
	IncreaseTokenVersion(ctx context.Context, id string) error
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	logger     *zap.Logger
}

// NewService creates a new user service
func NewService(repository UserRepository, logger *zap.Logger) Service {
	return &DefaultService{repository: repository, logger: logger}
}

// Authenticate checks the credential against the stored bcrypt hash.
func (s *DefaultService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repository.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactive
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *DefaultService) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *DefaultService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repository.FindByEmail(ctx, email)
}

// findOrCreate returns the account for email, creating it without a local
// password.
func (s *DefaultService) findOrCreate(ctx context.Context, name, email string) (*User, error) {
	user, err := s.repository.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user = &User{Name: name, Email: email, IsActive: true}
	if err := s.repository.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureOwner seeds the single account. An existing account gets its
// password replaced when a new one is configured.
func (s *DefaultService) EnsureOwner(ctx context.Context, name, email, password string) (*User, error) {
	user, err := s.findOrCreate(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("ensure owner %s: %w", email, err)
	}

	if password == "" {
		if user.PasswordHash == "" {
			s.logger.Warn("owner has no password; unlock only works through the identity endpoint",
				zap.String("email", user.Email))
		}
		return user, nil
	}

	if user.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
		return user, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.repository.UpdatePasswordHash(ctx, user.ID, string(hashed)); err != nil {
		return nil, err
	}
	user.PasswordHash = string(hashed)

	s.logger.Info("owner credential set", zap.String("email", user.Email))
	return user, nil
}

func (s *DefaultService) IncreaseTokenVersion(ctx context.Context, id string) error {
	return s.repository.IncreaseTokenVersion(ctx, id)
}
