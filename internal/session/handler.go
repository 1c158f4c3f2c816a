package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	apiError "projet/internal/errors"
	"projet/internal/identity"

	"github.com/gin-gonic/gin"
)

// Handler serves the entry screen actions: unlock, lock and who-am-i.
type Handler struct {
	provider     identity.Provider
	ownerEmail   string
	secureCookie bool
}

func NewHandler(provider identity.Provider, ownerEmail string, secureCookie bool) *Handler {
	return &Handler{provider: provider, ownerEmail: ownerEmail, secureCookie: secureCookie}
}

// FormUnlock only needs the code; the email defaults to the owner account.
type FormUnlock struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Unlock(c *gin.Context) {
	var form FormUnlock
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	email := form.Email
	if email == "" {
		email = h.ownerEmail
	}

	sess, err := h.provider.SignIn(c.Request.Context(), email, form.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAuth) {
			c.Error(apiError.AuthFailed("Code does not match", err))
			return
		}
		c.Error(err)
		return
	}

	c.SetCookie(
		CookieName,
		sess.Token,
		int(time.Until(sess.ExpiresAt).Seconds()),
		"/",
		"",
		h.secureCookie, // Secure
		true,           // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"access_token": sess.Token,
		"expires_at":   sess.ExpiresAt,
		"user":         sess.User,
	})
}

// Lock ends the current session, or every session with ?everywhere=true.
func (h *Handler) Lock(c *gin.Context) {
	everywhere, _ := strconv.ParseBool(c.Query("everywhere"))

	signOut := h.provider.SignOut
	if everywhere {
		signOut = h.provider.SignOutAll
	}
	if err := signOut(c.Request.Context(), TokenFrom(c)); err != nil {
		c.Error(err)
		return
	}
	c.SetCookie(CookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	u, ok := CurrentUserFrom(c)
	if !ok {
		c.Error(apiError.Unauthorized("user not found", nil))
		return
	}
	c.JSON(http.StatusOK, u)
}
