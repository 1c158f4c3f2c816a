// Package session guards every journal route behind the identity provider.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	apiError "projet/internal/errors"
	"projet/internal/identity"
	"projet/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CookieName = "projet_session"

	ctxUser      = "user"
	ctxUserID    = "user_id"
	ctxToken     = "session_token"
	ctxSessionID = "session_id"
)

type Gate struct {
	provider  identity.Provider
	entryPath string
	logger    *zap.Logger
}

func NewGate(provider identity.Provider, entryPath string, logger *zap.Logger) *Gate {
	return &Gate{provider: provider, entryPath: entryPath, logger: logger}
}

func (g *Gate) EntryPath() string {
	return g.entryPath
}

// CurrentUser resolves token. Any identity failure is reported as no user.
func (g *Gate) CurrentUser(ctx context.Context, token string) *user.SafeUser {
	u, _ := g.resolve(ctx, token)
	return u
}

func (g *Gate) resolve(ctx context.Context, token string) (*user.SafeUser, string) {
	if token == "" {
		return nil, ""
	}
	u, sessionID, err := g.provider.Resolve(ctx, token)
	if err != nil {
		g.logger.Debug("session not resolved", zap.Error(err))
		return nil, ""
	}
	return u, sessionID
}

// RequireAuth sends requests without a session back to the entry point.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		u, sessionID := g.resolve(ctx.Request.Context(), token)
		if u == nil {
			if strings.Contains(ctx.GetHeader("Accept"), "text/html") {
				ctx.Redirect(http.StatusFound, g.entryPath)
				ctx.Abort()
				return
			}
			ctx.Error(apiError.Unauthorized("Unlock required", nil).WithRedirect(g.entryPath))
			ctx.Abort()
			return
		}

		ctx.Set(ctxUser, u)
		ctx.Set(ctxUserID, u.ID)
		ctx.Set(ctxToken, token)
		ctx.Set(ctxSessionID, sessionID)
		ctx.Next()
	}
}

// TokenFromRequest reads the bearer header, then the token query parameter
// (EventSource cannot set headers), then the session cookie.
func TokenFromRequest(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if q := ctx.Query("token"); q != "" {
		return q
	}
	if c, err := ctx.Cookie(CookieName); err == nil {
		return c
	}
	return ""
}

// CurrentUserFrom returns the user RequireAuth stored on the context.
func CurrentUserFrom(ctx *gin.Context) (*user.SafeUser, bool) {
	v, ok := ctx.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.SafeUser)
	return u, ok && u != nil
}

func SessionIDFrom(ctx *gin.Context) string {
	return ctx.GetString(ctxSessionID)
}

func TokenFrom(ctx *gin.Context) string {
	return ctx.GetString(ctxToken)
}

// Watch follows one session for the lifetime of a long-lived view.
type Watch struct {
	done        chan struct{}
	mu          sync.Mutex
	closed      bool
	unsubscribe func()
}

// Watch subscribes to identity changes; Done closes once sessionID signs
// out, or once userID signs out everywhere. Close must be called on teardown.
func (g *Gate) Watch(userID, sessionID string) *Watch {
	w := &Watch{done: make(chan struct{})}
	w.unsubscribe = g.provider.Subscribe(func(ev identity.Event) {
		switch {
		case ev.Kind == identity.SignedOut && ev.SessionID == sessionID:
			w.end()
		case ev.Kind == identity.SignedOutAll && ev.UserID == userID:
			w.end()
		}
	})
	return w
}

func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
}

func (w *Watch) Close() {
	w.unsubscribe()
	w.end()
}
