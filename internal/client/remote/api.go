// Package remote implements the server-backed persistence adapters: the card
// server's HTTP API and a Supabase table, plus a circuit breaker around either.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
)

const apiCards = "/api/cards"

// APIRepository is a shoebox.Repository backed by the card server.
// The server scopes every row to the bearer token's user.
type APIRepository struct {
	client  *http.Client
	baseURL string
	token   string
}

var _ shoebox.Repository = (*APIRepository)(nil)

// NewAPIRepository returns a repository talking to the server at baseURL.
func NewAPIRepository(client *http.Client, baseURL, token string) *APIRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &APIRepository{client: client, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

// FetchAll lists the user's cards.
func (r *APIRepository) FetchAll(ctx context.Context) ([]models.Card, error) {
	body, err := r.do(ctx, http.MethodGet, apiCards, nil, http.StatusOK, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}
	return models.DecodeCards(body)
}

// Insert creates a card on the server and returns the stored row.
func (r *APIRepository) Insert(ctx context.Context, card models.NewCard) (models.Card, error) {
	body, err := r.do(ctx, http.MethodPost, apiCards, card, http.StatusCreated, nil)
	if err != nil {
		return models.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return models.DecodeCard(body)
}

// Update patches one card.
func (r *APIRepository) Update(ctx context.Context, id string, patch models.CardPatch) error {
	if _, err := r.do(ctx, http.MethodPatch, apiCards+"/"+url.PathEscape(id), patch, http.StatusNoContent, shoebox.ErrCardNotFound); err != nil {
		return fmt.Errorf("update card %s: %w", id, err)
	}
	return nil
}

// Delete removes one card.
func (r *APIRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.do(ctx, http.MethodDelete, apiCards+"/"+url.PathEscape(id), nil, http.StatusNoContent, shoebox.ErrCardNotFound); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// Upsert sends the whole batch in one request.
func (r *APIRepository) Upsert(ctx context.Context, cards []models.Card) error {
	if _, err := r.do(ctx, http.MethodPut, apiCards, cards, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	return nil
}

// do sends one request and expects the want status. A 404 becomes notFound when
// it is set; on collection routes a 404 means a wrong base URL and stays a server error.
func (r *APIRepository) do(ctx context.Context, method, path string, payload any, want int, notFound error) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == want:
		return data, nil
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return nil, notFound
	default:
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
}
