package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type restCall struct {
	Method string
	Query  map[string]string
	Body   string
	Auth   string
	Prefer string
}

// fakeRest records PostgREST requests and replies with a canned body per method.
type fakeRest struct {
	mu      sync.Mutex
	calls   []restCall
	replies map[string]string
	status  int
}

func newFakeRest(t *testing.T) (*fakeRest, *httptest.Server) {
	t.Helper()
	f := &fakeRest{replies: map[string]string{}, status: http.StatusOK}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/cards" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		f.mu.Lock()
		f.calls = append(f.calls, restCall{
			Method: r.Method, Query: q, Body: string(body),
			Auth: r.Header.Get("Authorization"), Prefer: r.Header.Get("Prefer"),
		})
		reply, status := f.replies[r.Method], f.status
		f.mu.Unlock()

		w.WriteHeader(status)
		if reply == "" {
			reply = "[]"
		}
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(ts.Close)
	return f, ts
}

func newSupabaseRepo(t *testing.T, url string, user string) *SupabaseRepository {
	t.Helper()
	client, err := NewSupabaseClient(url, "anon-key", "user-jwt")
	require.NoError(t, err)
	return NewSupabaseRepository(client, identity.Static(user))
}

func TestSupabaseRepository_FetchAll(t *testing.T) {
	f, ts := newFakeRest(t)
	f.replies[http.MethodGet] = `[{"id":"a","content":"x","color":"yellow","order":2,"created_at":"2024-01-01T00:00:00Z","is_archived":false,"user_id":"u1"}]`
	repo := newSupabaseRepo(t, ts.URL, "u1")

	cards, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, models.ColorYellow, cards[0].Color)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "eq.u1", f.calls[0].Query["user_id"])
	assert.Equal(t, "*", f.calls[0].Query["select"])
	assert.Equal(t, "Bearer user-jwt", f.calls[0].Auth)
}

func TestSupabaseRepository_Insert(t *testing.T) {
	f, ts := newFakeRest(t)
	f.replies[http.MethodPost] = `[{"id":"new","content":"hi","color":"default","order":-1,"created_at":"2024-01-01T00:00:00Z","is_archived":false,"user_id":"u1"}]`
	repo := newSupabaseRepo(t, ts.URL, "u1")

	card, err := repo.Insert(context.Background(), models.NewCard{Content: "hi", Order: -1})
	require.NoError(t, err)
	assert.Equal(t, "new", card.ID)

	var sent models.NewCard
	require.NoError(t, json.Unmarshal([]byte(f.calls[0].Body), &sent))
	assert.Equal(t, "u1", sent.UserID)
	assert.Equal(t, models.ColorDefault, sent.Color)
	assert.Contains(t, f.calls[0].Prefer, "return=representation")
}

func TestSupabaseRepository_UpdateMissingRow(t *testing.T) {
	f, ts := newFakeRest(t)
	repo := newSupabaseRepo(t, ts.URL, "u1")

	content := "x"
	err := repo.Update(context.Background(), "ghost", models.CardPatch{Content: &content})
	assert.ErrorIs(t, err, shoebox.ErrCardNotFound)
	assert.Equal(t, http.MethodPatch, f.calls[0].Method)
	assert.Equal(t, "eq.ghost", f.calls[0].Query["id"])
	assert.Equal(t, "eq.u1", f.calls[0].Query["user_id"])
	assert.JSONEq(t, `{"content":"x"}`, f.calls[0].Body)
}

func TestSupabaseRepository_UpsertStampsUser(t *testing.T) {
	f, ts := newFakeRest(t)
	repo := newSupabaseRepo(t, ts.URL, "u1")

	err := repo.Upsert(context.Background(), []models.Card{
		{ID: "a", Color: models.ColorDefault, Order: 0},
		{ID: "b", Color: models.ColorPink, Order: 1, UserID: "u1"},
	})
	require.NoError(t, err)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "id", f.calls[0].Query["on_conflict"])
	assert.Contains(t, f.calls[0].Prefer, "resolution=merge-duplicates")

	var rows []models.Card
	require.NoError(t, json.Unmarshal([]byte(f.calls[0].Body), &rows))
	for _, r := range rows {
		assert.Equal(t, "u1", r.UserID)
	}

	err = repo.Upsert(context.Background(), []models.Card{{ID: "c", UserID: "intruder"}})
	assert.Error(t, err)
	assert.Len(t, f.calls, 1)
}

func TestSupabaseRepository_Errors(t *testing.T) {
	f, ts := newFakeRest(t)
	f.status = http.StatusBadRequest
	f.replies[http.MethodDelete] = `{"code":"42501","message":"permission denied"}`

	err := newSupabaseRepo(t, ts.URL, "u1").Delete(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	_, err = newSupabaseRepo(t, ts.URL, "").FetchAll(context.Background())
	assert.ErrorIs(t, err, shoebox.ErrNoIdentity)
}

func TestNewSupabaseClient_RequiresURLAndKey(t *testing.T) {
	_, err := NewSupabaseClient("", "", "")
	assert.Error(t, err)
}
