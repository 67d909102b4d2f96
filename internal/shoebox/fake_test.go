package shoebox

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/models"
)

// fakeRepo records calls and returns preconfigured errors.
type fakeRepo struct {
	mu sync.Mutex

	rows      []models.Card
	fetchErr  error
	insertErr error
	updateErr error
	deleteErr error
	upsertErr error

	inserted []models.NewCard
	updates  map[string][]models.CardPatch
	deleted  []string
	upserts  [][]models.Card
	nextID   int
}

func newFakeRepo(rows ...models.Card) *fakeRepo {
	return &fakeRepo{rows: rows, updates: make(map[string][]models.CardPatch)}
}

func (f *fakeRepo) FetchAll(context.Context) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Card, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeRepo) Insert(_ context.Context, nc models.NewCard) (models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, nc)
	if f.insertErr != nil {
		return models.Card{}, f.insertErr
	}
	f.nextID++
	card := models.Card{
		ID:        fmt.Sprintf("srv-%d", f.nextID),
		Content:   nc.Content,
		Color:     nc.Color,
		Order:     nc.Order,
		UserID:    nc.UserID,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	}
	f.rows = append(f.rows, card)
	return card, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, p models.CardPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], p)
	return f.updateErr
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeRepo) Upsert(_ context.Context, cards []models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, cards)
	return f.upsertErr
}

func (f *fakeRepo) lastUpsert(t *testing.T) []models.Card {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.upserts) == 0 {
		t.Fatal("expected an upsert")
	}
	return f.upserts[len(f.upserts)-1]
}

// at returns a fixed timestamp offset by minutes, for deterministic sorting.
func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)
}

func card(id string, order int, created int, archived bool) models.Card {
	return models.Card{
		ID:         id,
		Content:    "card " + id,
		Color:      models.ColorDefault,
		Order:      order,
		CreatedAt:  at(created),
		IsArchived: archived,
	}
}

// loadedStore returns a store loaded with rows and seeded randomness.
func loadedStore(t *testing.T, rows ...models.Card) (*Store, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo(rows...)
	s := NewStore(repo, identity.Static("u1"), WithRand(rand.New(rand.NewPCG(1, 2))))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, repo
}

func ids(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}
