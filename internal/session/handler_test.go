package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"projet/internal/identity"
	"projet/internal/middleware"
	"projet/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockProvider is a mock implementation of identity.Provider
type MockProvider struct {
	mock.Mock
	listeners []func(identity.Event)
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockProvider) SignOutAll(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockProvider) Resolve(ctx context.Context, token string) (*user.SafeUser, string, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*user.SafeUser), args.String(1), args.Error(2)
}

func (m *MockProvider) Subscribe(fn func(identity.Event)) func() {
	m.listeners = append(m.listeners, fn)
	idx := len(m.listeners) - 1
	return func() { m.listeners[idx] = nil }
}

func (m *MockProvider) emit(ev identity.Event) {
	for _, fn := range m.listeners {
		if fn != nil {
			fn(ev)
		}
	}
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	return router
}

func TestUnlock_Success(t *testing.T) {
	provider := new(MockProvider)
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()

	provider.On("SignIn", mock.Anything, "owner@example.com", "code123").Return(&identity.Session{
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      user.SafeUser{ID: "u1", Email: "owner@example.com"},
	}, nil)

	router.POST("/unlock", handler.Unlock)

	body, _ := json.Marshal(FormUnlock{Password: "code123"})
	req := httptest.NewRequest("POST", "/unlock", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "tok", response["access_token"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), CookieName+"=tok")
	provider.AssertExpectations(t)
}

func TestUnlock_WrongCode(t *testing.T) {
	provider := new(MockProvider)
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()

	provider.On("SignIn", mock.Anything, "owner@example.com", "bad").
		Return(nil, fmt.Errorf("%w: nope", identity.ErrAuth))

	router.POST("/unlock", handler.Unlock)

	body, _ := json.Marshal(FormUnlock{Password: "bad"})
	req := httptest.NewRequest("POST", "/unlock", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "auth", response["kind"])
}

func TestUnlock_MissingPassword(t *testing.T) {
	provider := new(MockProvider)
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()
	router.POST("/unlock", handler.Unlock)

	req := httptest.NewRequest("POST", "/unlock", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	provider.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequireAuth_NoSessionJSON(t *testing.T) {
	provider := new(MockProvider)
	gate := NewGate(provider, "/", zap.NewNop())
	router := setupRouter()
	router.GET("/records", gate.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/records", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "/", response["redirect"])
}

func TestRequireAuth_NoSessionHTML(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Resolve", mock.Anything, "stale").Return(nil, "", identity.ErrNoSession)
	gate := NewGate(provider, "/", zap.NewNop())
	router := setupRouter()
	router.GET("/records", gate.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/records", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRequireAuth_ProviderFailureIsNoUser(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Resolve", mock.Anything, "tok").Return(nil, "", fmt.Errorf("redis down"))
	gate := NewGate(provider, "/", zap.NewNop())

	assert.Nil(t, gate.CurrentUser(context.Background(), "tok"))
	assert.Nil(t, gate.CurrentUser(context.Background(), ""))
}

func TestRequireAuth_WithSession(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Resolve", mock.Anything, "tok").Return(&user.SafeUser{ID: "u1"}, "s1", nil)
	gate := NewGate(provider, "/", zap.NewNop())
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()
	router.GET("/me", gate.RequireAuth(), handler.Me)

	req := httptest.NewRequest("GET", "/me?token=tok", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response user.SafeUser
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "u1", response.ID)
}

func TestLock(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Resolve", mock.Anything, "tok").Return(&user.SafeUser{ID: "u1"}, "s1", nil)
	provider.On("SignOut", mock.Anything, "tok").Return(nil)
	gate := NewGate(provider, "/", zap.NewNop())
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()
	router.DELETE("/lock", gate.RequireAuth(), handler.Lock)

	req := httptest.NewRequest("DELETE", "/lock", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	provider.AssertExpectations(t)
}

func TestLock_Everywhere(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Resolve", mock.Anything, "tok").Return(&user.SafeUser{ID: "u1"}, "s1", nil)
	provider.On("SignOutAll", mock.Anything, "tok").Return(nil)
	gate := NewGate(provider, "/", zap.NewNop())
	handler := NewHandler(provider, "owner@example.com", false)
	router := setupRouter()
	router.DELETE("/lock", gate.RequireAuth(), handler.Lock)

	req := httptest.NewRequest("DELETE", "/lock?everywhere=true", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	provider.AssertExpectations(t)
	provider.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
}

func TestWatch_EndsOnSignOutAll(t *testing.T) {
	provider := new(MockProvider)
	gate := NewGate(provider, "/", zap.NewNop())

	w := gate.Watch("u1", "s1")
	defer w.Close()

	provider.emit(identity.Event{Kind: identity.SignedOutAll, UserID: "u2"})
	select {
	case <-w.Done():
		t.Fatal("watch ended for another user")
	default:
	}

	provider.emit(identity.Event{Kind: identity.SignedOutAll, UserID: "u1"})
	select {
	case <-w.Done():
	default:
		t.Fatal("watch should end when its user signs out everywhere")
	}
}

func TestWatch_EndsOnSignOut(t *testing.T) {
	provider := new(MockProvider)
	gate := NewGate(provider, "/", zap.NewNop())

	w := gate.Watch("u1", "s1")
	defer w.Close()

	provider.emit(identity.Event{Kind: identity.SignedOut, SessionID: "other"})
	select {
	case <-w.Done():
		t.Fatal("watch ended for another session")
	default:
	}

	provider.emit(identity.Event{Kind: identity.SignedOut, SessionID: "s1"})
	select {
	case <-w.Done():
	default:
		t.Fatal("watch should end when its session signs out")
	}
}

func TestWatch_CloseUnsubscribes(t *testing.T) {
	provider := new(MockProvider)
	gate := NewGate(provider, "/", zap.NewNop())

	w := gate.Watch("u1", "s1")
	w.Close()
	w.Close()

	assert.Nil(t, provider.listeners[0])
}
