// Package shoebox owns the in-memory card collection and every mutation and query on it.
//
// A Store applies each mutation to its collection first and then writes it through the
// configured Repository. Failures are logged and returned. Only Archive and Restore undo
// their local change when the write fails; every other mutation leaves it standing.
package shoebox

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCardNotFound is returned when an operation names an unknown card id.
	ErrCardNotFound = errors.New("card not found")
	// ErrNoIdentity is returned, without any state change, by operations that need a signed-in user.
	ErrNoIdentity = errors.New("no current user")
)

// Repository is the persistence adapter behind a Store.
// Rows are scoped to the current identity by the implementation.
type Repository interface {
	// FetchAll returns every card of the current identity.
	FetchAll(ctx context.Context) ([]models.Card, error)
	// Insert creates a card and returns it with its assigned id and creation time.
	Insert(ctx context.Context, card models.NewCard) (models.Card, error)
	// Update applies a partial update to one card.
	Update(ctx context.Context, id string, patch models.CardPatch) error
	// Delete removes one card.
	Delete(ctx context.Context, id string) error
	// Upsert writes a batch of full cards, inserting or replacing by id.
	Upsert(ctx context.Context, cards []models.Card) error
}

// Store is the card collection plus its view state.
type Store struct {
	repo     Repository
	identity identity.Provider
	log      *zap.Logger
	rng      *rand.Rand
	now      func() time.Time

	mu          sync.Mutex
	cards       []models.Card
	loading     bool
	sortMode    models.SortMode
	archiveView bool
	search      string
	colors      map[models.Color]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithRand sets the random source used by Shuffle.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// WithClock sets the clock used to stamp optimistic cards.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store in custom sort mode.
// The store resets itself whenever the identity's session changes.
func NewStore(repo Repository, ident identity.Provider, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		identity: ident,
		log:      zap.NewNop(),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:      time.Now,
		sortMode: models.SortCustom,
		colors:   make(map[models.Color]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	ident.OnSessionChange(func(userID string) {
		s.reset()
		s.log.Info("session changed, collection cleared", zap.Bool("signed_in", userID != ""))
	})
	return s
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = nil
	s.archiveView = false
	s.search = ""
	s.colors = make(map[models.Color]struct{})
}

// Load replaces the collection with the repository's rows and re-applies the sort mode.
// On failure the previous collection is kept.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	cards, err := s.repo.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.log.Error("failed to load cards", zap.Error(err))
		return fmt.Errorf("load cards: %w", err)
	}
	s.cards = cards
	s.applySortLocked()
	return nil
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Add puts a new card at the front of the collection and inserts it.
// An empty color means models.ColorDefault. If the insert fails the
// optimistic card stays in the collection and the error is returned.
func (s *Store) Add(ctx context.Context, content string, color models.Color) (models.Card, error) {
	userID := s.identity.CurrentUserID()
	if userID == "" {
		return models.Card{}, ErrNoIdentity
	}
	if color == "" {
		color = models.ColorDefault
	}

	s.mu.Lock()
	order := 0
	if len(s.cards) > 0 {
		order = s.cards[0].Order
		for _, c := range s.cards[1:] {
			order = min(order, c.Order)
		}
		order--
	}
	provisional := models.Card{
		ID:        uuid.NewString(),
		Content:   content,
		Color:     color,
		Order:     order,
		CreatedAt: s.now().UTC(),
		UserID:    userID,
	}
	s.cards = append([]models.Card{provisional}, s.cards...)
	s.mu.Unlock()

	created, err := s.repo.Insert(ctx, models.NewCard{
		Content: content,
		Color:   color,
		Order:   order,
		UserID:  userID,
	})
	if err != nil {
		s.log.Error("failed to create card", zap.Error(err))
		return provisional, fmt.Errorf("insert card: %w", err)
	}

	s.mu.Lock()
	if i := s.indexLocked(provisional.ID); i >= 0 {
		s.cards[i] = created
	}
	s.mu.Unlock()
	return created, nil
}

// EditContent replaces a card's content and writes it immediately.
// The local edit is kept if the write fails.
func (s *Store) EditContent(ctx context.Context, id, content string) error {
	if err := s.mutate(id, func(c *models.Card) { c.Content = content }); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, models.CardPatch{Content: &content}); err != nil {
		s.log.Error("failed to update card content", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// ChangeColor replaces a card's color and writes it.
// The local change is kept if the write fails.
func (s *Store) ChangeColor(ctx context.Context, id string, color models.Color) error {
	if err := s.mutate(id, func(c *models.Card) { c.Color = color }); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, models.CardPatch{Color: &color}); err != nil {
		s.log.Error("failed to update card color", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("update color: %w", err)
	}
	return nil
}

// Archive moves an active card to the trash. Archiving an archived card does nothing.
// If the write fails the card is put back on the working surface.
func (s *Store) Archive(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, true)
}

// Restore moves an archived card back to the working surface. Restoring an active card does nothing.
// If the write fails the card goes back to the trash.
func (s *Store) Restore(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, false)
}

func (s *Store) setArchived(ctx context.Context, id string, archived bool) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrCardNotFound
	}
	if s.cards[i].IsArchived == archived {
		s.mu.Unlock()
		return nil
	}
	s.cards[i].IsArchived = archived
	s.mu.Unlock()

	if err := s.repo.Update(ctx, id, models.CardPatch{IsArchived: &archived}); err != nil {
		s.log.Error("failed to change archive state", zap.String("id", id), zap.Bool("archived", archived), zap.Error(err))
		s.mu.Lock()
		if i := s.indexLocked(id); i >= 0 && s.cards[i].IsArchived == archived {
			s.cards[i].IsArchived = !archived
		}
		s.mu.Unlock()
		return fmt.Errorf("update archive state: %w", err)
	}
	return nil
}

// DeleteForever removes a card from the collection and then from the repository.
// The local removal is not undone if the delete fails.
func (s *Store) DeleteForever(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrCardNotFound
	}
	s.cards = append(s.cards[:i:i], s.cards[i+1:]...)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("failed to delete card", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// Get returns a copy of the card with the given id.
func (s *Store) Get(id string) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.cards[i], true
	}
	return models.Card{}, false
}

func (s *Store) mutate(id string, fn func(*models.Card)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrCardNotFound
	}
	fn(&s.cards[i])
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}
