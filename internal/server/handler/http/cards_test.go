package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/shoebox/internal/metrics"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/service"
	handler "github.com/atinyakov/shoebox/internal/server/handler/http"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("router-secret")

// fakeCardService records calls and returns preconfigured results.
type fakeCardService struct {
	userID  string
	id      string
	newCard models.NewCard
	patch   models.CardPatch
	batch   []models.Card

	cards []models.Card
	card  models.Card
	err   error
}

func (f *fakeCardService) List(_ context.Context, userID string) ([]models.Card, error) {
	f.userID = userID
	return f.cards, f.err
}

func (f *fakeCardService) Create(_ context.Context, userID string, nc models.NewCard) (models.Card, error) {
	f.userID, f.newCard = userID, nc
	return f.card, f.err
}

func (f *fakeCardService) Update(_ context.Context, userID, id string, p models.CardPatch) error {
	f.userID, f.id, f.patch = userID, id, p
	return f.err
}

func (f *fakeCardService) Delete(_ context.Context, userID, id string) error {
	f.userID, f.id = userID, id
	return f.err
}

func (f *fakeCardService) Upsert(_ context.Context, userID string, cards []models.Card) error {
	f.userID, f.batch = userID, cards
	return f.err
}

func newServer(t *testing.T, svc *fakeCardService) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector("shoebox")
	h := &handler.CardHandler{CardService: svc, Metrics: collector}
	ts := httptest.NewServer(handler.NewRouter(h, handler.RouterConfig{
		JWTSecret:      secret,
		AllowedOrigins: []string{"https://app.example"},
		Metrics:        collector,
	}))
	t.Cleanup(ts.Close)
	return ts, collector
}

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPublicEndpoints(t *testing.T) {
	ts, _ := newServer(t, &fakeCardService{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/cards")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe(t *testing.T) {
	ts, _ := newServer(t, &fakeCardService{})
	resp := do(t, ts, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"status": "ok", "user": "u1"}, body)
}

func TestListCards(t *testing.T) {
	svc := &fakeCardService{cards: []models.Card{{ID: "a", Color: models.ColorPink}}}
	ts, _ := newServer(t, svc)

	resp := do(t, ts, http.MethodGet, "/api/cards", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	data, _ := io.ReadAll(resp.Body)
	cards, err := models.DecodeCards(data)
	require.NoError(t, err)
	assert.Equal(t, "a", cards[0].ID)
	assert.Equal(t, "u1", svc.userID)
}

func TestCreateCard(t *testing.T) {
	svc := &fakeCardService{card: models.Card{ID: "new", Content: "hi", Color: models.ColorDefault}}
	ts, collector := newServer(t, svc)

	resp := do(t, ts, http.MethodPost, "/api/cards", `{"content":"hi","order":-1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "hi", svc.newCard.Content)
	assert.Equal(t, -1, svc.newCard.Order)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "shoebox_cards_created_total 1")
}

func TestUpdateCard(t *testing.T) {
	svc := &fakeCardService{}
	ts, _ := newServer(t, svc)

	resp := do(t, ts, http.MethodPatch, "/api/cards/abc", `{"is_archived":true}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "abc", svc.id)
	require.NotNil(t, svc.patch.IsArchived)
	assert.True(t, *svc.patch.IsArchived)
	assert.Nil(t, svc.patch.Content)
}

func TestDeleteAndUpsert(t *testing.T) {
	svc := &fakeCardService{}
	ts, _ := newServer(t, svc)

	resp := do(t, ts, http.MethodDelete, "/api/cards/abc", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "abc", svc.id)

	resp = do(t, ts, http.MethodPut, "/api/cards", `[{"id":"a","color":"default","order":0},{"id":"b","color":"blue","order":1}]`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, svc.batch, 2)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrNoUser, http.StatusUnauthorized},
		{models.ErrInvalid, http.StatusBadRequest},
		{service.ErrConflict, http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ts, _ := newServer(t, &fakeCardService{err: tc.err})
			resp := do(t, ts, http.MethodPatch, "/api/cards/x", `{"content":"y"}`)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestBadBodyAndContentType(t *testing.T) {
	ts, _ := newServer(t, &fakeCardService{})

	resp := do(t, ts, http.MethodPost, "/api/cards", "not-json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/cards", strings.NewReader("content=x"))
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r2, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer r2.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, r2.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newServer(t, &fakeCardService{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/cards", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
