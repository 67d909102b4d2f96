package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repositories returns one repository per backend, each on a fresh temp location.
func repositories(t *testing.T) map[string]*DocumentRepository {
	t.Helper()
	dir := t.TempDir()

	db, err := OpenSQLite(filepath.Join(dir, "shoebox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]*DocumentRepository{
		"file":   NewFileRepository(filepath.Join(dir, "shoebox.json")),
		"sqlite": NewSQLiteRepository(db),
	}
}

func TestDocumentRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			cards, err := repo.FetchAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, cards)

			first, err := repo.Insert(ctx, models.NewCard{Content: "first", Order: 0, UserID: "local"})
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.Equal(t, models.ColorDefault, first.Color)
			assert.False(t, first.CreatedAt.IsZero())

			second, err := repo.Insert(ctx, models.NewCard{Content: "second", Color: models.ColorPink, Order: -1})
			require.NoError(t, err)
			assert.NotEqual(t, first.ID, second.ID)

			content := "first, edited"
			archived := true
			require.NoError(t, repo.Update(ctx, first.ID, models.CardPatch{Content: &content, IsArchived: &archived}))
			err = repo.Update(ctx, "missing", models.CardPatch{Content: &content})
			assert.ErrorIs(t, err, shoebox.ErrCardNotFound)

			cards, err = repo.FetchAll(ctx)
			require.NoError(t, err)
			require.Len(t, cards, 2)
			byID := map[string]models.Card{}
			for _, c := range cards {
				byID[c.ID] = c
			}
			assert.Equal(t, "first, edited", byID[first.ID].Content)
			assert.True(t, byID[first.ID].IsArchived)
			assert.Equal(t, models.ColorPink, byID[second.ID].Color)

			require.NoError(t, repo.Delete(ctx, first.ID))
			require.NoError(t, repo.Delete(ctx, "never-existed"))
			cards, err = repo.FetchAll(ctx)
			require.NoError(t, err)
			require.Len(t, cards, 1)
			assert.Equal(t, second.ID, cards[0].ID)
		})
	}
}

func TestDocumentRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			existing, err := repo.Insert(ctx, models.NewCard{Content: "keep", Order: 5})
			require.NoError(t, err)

			batch := []models.Card{
				{ID: existing.ID, Content: "keep", Color: models.ColorBlue, Order: 1},
				{ID: "new-id", Content: "fresh", Color: models.ColorDefault, Order: 0},
			}
			require.NoError(t, repo.Upsert(ctx, batch))

			cards, err := repo.FetchAll(ctx)
			require.NoError(t, err)
			require.Len(t, cards, 2)
			assert.Equal(t, existing.ID, cards[0].ID)
			assert.Equal(t, 1, cards[0].Order)
			assert.Equal(t, models.ColorBlue, cards[0].Color)
			assert.True(t, existing.CreatedAt.Equal(cards[0].CreatedAt), "created_at survives an upsert without one")
			assert.Equal(t, "new-id", cards[1].ID)
			assert.False(t, cards[1].CreatedAt.IsZero())
		})
	}
}

func TestFileRepository_WritesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	repo := NewFileRepository(path)
	repo.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	_, err := repo.Insert(context.Background(), models.NewCard{Content: "hello"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Cards, 1)
	assert.Equal(t, "hello", doc.Cards[0].Content)
	assert.Equal(t, "2024-01-02T03:04:05Z", doc.Cards[0].CreatedAt.Format(time.RFC3339))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileRepository_MalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cards":[{"id":"","color":"teal"}]}`), 0600))

	_, err := NewFileRepository(path).FetchAll(context.Background())
	assert.ErrorIs(t, err, models.ErrDecode)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))
	_, err = NewFileRepository(path).FetchAll(context.Background())
	assert.ErrorIs(t, err, models.ErrDecode)
}

func TestStoreOverFileRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cards.json")

	store := shoebox.NewStore(NewFileRepository(path), staticUser("local"))
	require.NoError(t, store.Load(ctx))
	a, err := store.Add(ctx, "alpha", models.ColorYellow)
	require.NoError(t, err)
	_, err = store.Add(ctx, "beta", "")
	require.NoError(t, err)
	require.NoError(t, store.Archive(ctx, a.ID))

	reopened := shoebox.NewStore(NewFileRepository(path), staticUser("local"))
	require.NoError(t, reopened.Load(ctx))
	assert.Len(t, reopened.Active(), 1)
	assert.Len(t, reopened.Archived(), 1)
	assert.Equal(t, "beta", reopened.Active()[0].Content)
}

type staticUser string

func (s staticUser) CurrentUserID() string       { return string(s) }
func (s staticUser) OnSessionChange(func(string)) {}
