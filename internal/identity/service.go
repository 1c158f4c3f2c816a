package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"projet/internal/auth"
	"projet/internal/cache"
	"projet/internal/user"

	"go.uber.org/zap"
)

type sessionEntry struct {
	UserID string `json:"user_id"`
}

// Service issues JWT access tokens backed by a session key in the cache.
// Deleting the key ends the session even if the token has not expired.
type Service struct {
	authn    Authenticator
	users    user.Service
	signer   *auth.Signer
	sessions cache.Cache
	logger   *zap.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Event)
}

func NewService(authn Authenticator, users user.Service, signer *auth.Signer, sessions cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		authn:     authn,
		users:     users,
		signer:    signer,
		sessions:  sessions,
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrInactive) || errors.Is(err, ErrAuth) {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, err
	}

	token, claims, err := s.signer.GenerateAccessToken(u.ID, u.TokenVersion)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, sessionKey(claims.ID), sessionEntry{UserID: u.ID}, s.signer.TTL()); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.logger.Info("signed in", zap.String("user_id", u.ID), zap.String("session_id", claims.ID))
	s.publish(Event{Kind: SignedIn, UserID: u.ID, SessionID: claims.ID})

	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u.ToSafeUser(),
	}, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.signer.VerifyJWT(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if err := s.sessions.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return err
	}

	s.logger.Info("signed out", zap.String("user_id", claims.UserID), zap.String("session_id", claims.ID))
	s.publish(Event{Kind: SignedOut, UserID: claims.UserID, SessionID: claims.ID})
	return nil
}

// SignOutAll bumps the account's token version, which invalidates every
// token issued so far, and drops the caller's own session key.
func (s *Service) SignOutAll(ctx context.Context, token string) error {
	claims, err := s.signer.VerifyJWT(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if err := s.users.IncreaseTokenVersion(ctx, claims.UserID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return err
	}

	s.logger.Info("signed out everywhere", zap.String("user_id", claims.UserID))
	s.publish(Event{Kind: SignedOutAll, UserID: claims.UserID})
	return nil
}

// Resolve returns the user and session id behind token.
func (s *Service) Resolve(ctx context.Context, token string) (*user.SafeUser, string, error) {
	claims, err := s.signer.VerifyJWT(token)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	var entry sessionEntry
	found, err := s.sessions.Get(ctx, sessionKey(claims.ID), &entry)
	if err != nil {
		return nil, "", err
	}
	if !found || entry.UserID != claims.UserID {
		return nil, "", ErrNoSession
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, "", err
	}
	if !u.IsActive || u.TokenVersion != claims.TokenVersion {
		return nil, "", ErrNoSession
	}

	safe := u.ToSafeUser()
	return &safe, claims.ID, nil
}

// Subscribe registers fn for session changes until unsubscribe is called.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
