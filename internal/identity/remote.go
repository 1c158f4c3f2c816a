package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"projet/internal/user"
)

// RemoteAuthenticator delegates the credential check to an external identity
// endpoint. Only the owner email is ever sent or accepted; the account itself
// is the seeded local one.
type RemoteAuthenticator struct {
	baseURL    string
	ownerEmail string
	users      user.Service
	httpClient *http.Client
}

func NewRemoteAuthenticator(baseURL, ownerEmail string, users user.Service) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		ownerEmail: strings.TrimSpace(ownerEmail),
		users:      users,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func (r *RemoteAuthenticator) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	if !strings.EqualFold(strings.TrimSpace(email), r.ownerEmail) {
		return nil, fmt.Errorf("%w: %s is not the owner", ErrAuth, email)
	}

	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/sign-in",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrAuth
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"identity sign-in error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var payload signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.UID == "" || !strings.EqualFold(payload.Email, r.ownerEmail) {
		return nil, fmt.Errorf("%w: identity vouched for %q", ErrAuth, payload.Email)
	}

	owner, err := r.users.GetUserByEmail(ctx, r.ownerEmail)
	if errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("owner %s is not seeded: %w", r.ownerEmail, err)
	}
	return owner, err
}
