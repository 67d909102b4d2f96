// Package storage implements the local-only persistence shapes: the whole card
// collection lives in one JSON document under a fixed key and is rewritten in
// full on every change.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"github.com/google/uuid"
)

// DocumentKey is the fixed key the collection is stored under.
const DocumentKey = "shoebox.cards"

// backend reads and writes the raw document. A missing document reads as nil.
type backend interface {
	read(ctx context.Context) ([]byte, error)
	write(ctx context.Context, data []byte) error
}

// document is the on-disk shape.
type document struct {
	Cards []models.Card `json:"cards"`
}

// DocumentRepository is a shoebox.Repository over a single JSON document.
// It keeps no copy of the collection between calls.
type DocumentRepository struct {
	mu      sync.Mutex
	backend backend
	now     func() time.Time
}

var _ shoebox.Repository = (*DocumentRepository)(nil)

func newDocumentRepository(b backend) *DocumentRepository {
	return &DocumentRepository{backend: b, now: time.Now}
}

// FetchAll returns every stored card.
func (r *DocumentRepository) FetchAll(ctx context.Context) ([]models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Insert appends a card with a fresh uuid and creation time.
func (r *DocumentRepository) Insert(ctx context.Context, nc models.NewCard) (models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cards, err := r.load(ctx)
	if err != nil {
		return models.Card{}, err
	}
	color := nc.Color
	if color == "" {
		color = models.ColorDefault
	}
	card := models.Card{
		ID:        uuid.NewString(),
		Content:   nc.Content,
		Color:     color,
		Order:     nc.Order,
		CreatedAt: r.now().UTC(),
		UserID:    nc.UserID,
	}
	cards = append([]models.Card{card}, cards...)
	if err := r.save(ctx, cards); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

// Update applies patch to the card with the given id.
func (r *DocumentRepository) Update(ctx context.Context, id string, patch models.CardPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cards, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range cards {
		if cards[i].ID == id {
			patch.Apply(&cards[i])
			return r.save(ctx, cards)
		}
	}
	return fmt.Errorf("update %s: %w", id, shoebox.ErrCardNotFound)
}

// Delete removes the card with the given id. Deleting a missing card is not an error.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cards, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := cards[:0]
	for _, c := range cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return r.save(ctx, kept)
}

// Upsert replaces cards with matching ids and appends the rest.
func (r *DocumentRepository) Upsert(ctx context.Context, batch []models.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cards, err := r.load(ctx)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		index[c.ID] = i
	}
	for _, c := range batch {
		if i, ok := index[c.ID]; ok {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = cards[i].CreatedAt
			}
			cards[i] = c
			continue
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = r.now().UTC()
		}
		index[c.ID] = len(cards)
		cards = append(cards, c)
	}
	return r.save(ctx, cards)
}

func (r *DocumentRepository) load(ctx context.Context) ([]models.Card, error) {
	data, err := r.backend.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Card{}, nil
	}
	var doc struct {
		Cards json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	if len(doc.Cards) == 0 {
		return []models.Card{}, nil
	}
	return models.DecodeCards(doc.Cards)
}

func (r *DocumentRepository) save(ctx context.Context, cards []models.Card) error {
	if cards == nil {
		cards = []models.Card{}
	}
	data, err := json.MarshalIndent(document{Cards: cards}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.backend.write(ctx, data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
