// Package identity is the sign-in collaborator behind the session gate: it
// checks the shared credential, issues session tokens and announces session
// changes.
package identity

import (
	"context"
	"errors"
	"time"

	"projet/internal/user"
)

var (
	// ErrAuth is a rejected credential. Callers may retry.
	ErrAuth = errors.New("credential rejected")
	// ErrNoSession means the token does not name a live session.
	ErrNoSession = errors.New("no session")
)

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"

	// SignedOutAll ends every session of UserID; SessionID is empty.
	SignedOutAll EventKind = "signed_out_all"
)

type Event struct {
	Kind      EventKind
	UserID    string
	SessionID string
}

type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      user.SafeUser `json:"user"`
}

// Provider is what the session gate consumes.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	SignOutAll(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*user.SafeUser, string, error)
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Authenticator checks an email/password pair and returns the local account.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}
