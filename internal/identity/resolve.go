package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

// ErrNoUser is returned when a token does not resolve to a user.
var ErrNoUser = errors.New("token does not identify a user")

// SupabaseUser resolves the user id behind a Supabase access token.
func SupabaseUser(client *supabase.Client, token string) (string, error) {
	if token == "" {
		return "", ErrNoUser
	}
	// GetUser carries no context; the auth client uses its own HTTP timeout.
	user, err := client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("get supabase user: %w", err)
	}
	if user.ID == uuid.Nil {
		return "", ErrNoUser
	}
	return user.ID.String(), nil
}

// APIUser resolves the user id of a bearer token through the Shoebox server's /api/me endpoint.
func APIUser(ctx context.Context, client *http.Client, baseURL, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/me", nil)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whoami failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server error: %s", string(data))
	}

	var body struct {
		User string `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	if body.User == "" {
		return "", ErrNoUser
	}
	return body.User, nil
}
