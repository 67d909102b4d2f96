package shoebox

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/atinyakov/shoebox/internal/models"
	"go.uber.org/zap"
)

// SortMode returns the active sort mode.
func (s *Store) SortMode() models.SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortMode
}

// SetSortMode stores mode and re-sorts the whole collection.
func (s *Store) SetSortMode(mode models.SortMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown sort mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortMode = mode
	s.applySortLocked()
	return nil
}

func (s *Store) applySortLocked() {
	sortCards(s.cards, s.sortMode)
}

// sortCards stably sorts cards in place. Custom order breaks ties newest first.
func sortCards(cards []models.Card, mode models.SortMode) {
	switch mode {
	case models.SortNewest:
		slices.SortStableFunc(cards, func(a, b models.Card) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case models.SortOldest:
		slices.SortStableFunc(cards, func(a, b models.Card) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	default:
		slices.SortStableFunc(cards, func(a, b models.Card) int {
			if c := cmp.Compare(a.Order, b.Order); c != 0 {
				return c
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

// Shuffle permutes the whole collection uniformly at random, numbers every card
// by its new position, switches to custom sort so the result is visible, and
// persists the new order.
func (s *Store) Shuffle(ctx context.Context) error {
	s.mu.Lock()
	shuffled := slices.Clone(s.cards)
	// Fisher-Yates: every permutation is equally likely.
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	for i := range shuffled {
		shuffled[i].Order = i
	}
	s.cards = shuffled
	s.sortMode = models.SortCustom
	s.mu.Unlock()

	return s.PersistOrder(ctx)
}

// Reorder applies a complete new ordering of the active cards, given as ids.
// Each listed card takes its index as Order. Ids that are unknown, archived or
// repeated are skipped; active cards missing from ids keep their relative order
// after the listed ones. Archived cards are left untouched. The new order is
// persisted as a batch and is not rolled back on failure.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	active := make(map[string]int, len(s.cards))
	for i, c := range s.cards {
		if !c.IsArchived {
			active[c.ID] = i
		}
	}

	reordered := make([]models.Card, 0, len(active))
	for _, id := range ids {
		i, ok := active[id]
		if !ok {
			continue
		}
		delete(active, id)
		reordered = append(reordered, s.cards[i])
	}
	var archived []models.Card
	for _, c := range s.cards {
		if c.IsArchived {
			archived = append(archived, c)
			continue
		}
		if _, missing := active[c.ID]; missing {
			reordered = append(reordered, c)
		}
	}
	for i := range reordered {
		reordered[i].Order = i
	}

	batch := s.upsertBatchLocked(reordered)
	s.cards = append(reordered, archived...)
	s.mu.Unlock()

	if batch == nil {
		return ErrNoIdentity
	}
	if err := s.repo.Upsert(ctx, batch); err != nil {
		s.log.Error("failed to persist reorder", zap.Int("cards", len(batch)), zap.Error(err))
		return fmt.Errorf("persist reorder: %w", err)
	}
	return nil
}

// PersistOrder upserts every active card with a dense 0..N-1 order taken from
// its position in the collection. The in-memory orders are not touched.
func (s *Store) PersistOrder(ctx context.Context) error {
	s.mu.Lock()
	var active []models.Card
	for _, c := range s.cards {
		if !c.IsArchived {
			active = append(active, c)
		}
	}
	batch := s.upsertBatchLocked(active)
	s.mu.Unlock()

	if batch == nil {
		return ErrNoIdentity
	}
	if err := s.repo.Upsert(ctx, batch); err != nil {
		s.log.Error("failed to persist order", zap.Int("cards", len(batch)), zap.Error(err))
		return fmt.Errorf("persist order: %w", err)
	}
	return nil
}

// upsertBatchLocked builds the upsert rows for a run of active cards, stamped
// with the current user and numbered densely. It returns nil without a user.
func (s *Store) upsertBatchLocked(active []models.Card) []models.Card {
	userID := s.identity.CurrentUserID()
	if userID == "" {
		return nil
	}
	batch := make([]models.Card, len(active))
	for i, c := range active {
		batch[i] = models.Card{
			ID:         c.ID,
			UserID:     userID,
			Content:    c.Content,
			Color:      c.Color,
			CreatedAt:  c.CreatedAt,
			IsArchived: false,
			Order:      i,
		}
	}
	return batch
}
