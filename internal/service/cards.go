// Package service provides the card business logic of the server,
// delegating persistence to a CardRepository.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/repository"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the user has no card with the given id.
	ErrNotFound = errors.New("card not found")
	// ErrInvalid is returned for payloads that fail validation.
	ErrInvalid = models.ErrInvalid
	// ErrConflict is returned when a create reuses an existing id.
	ErrConflict = errors.New("card already exists")
	// ErrNoUser is returned when the request carries no identity.
	ErrNoUser = errors.New("no user in request")
)

// CardRepository defines the persistence operations needed by the CardService.
type CardRepository interface {
	// List returns every card of the user.
	List(ctx context.Context, userID string) ([]models.Card, error)
	// Create stores a new, fully populated card.
	Create(ctx context.Context, card models.Card) error
	// Update applies a partial update to one of the user's cards.
	Update(ctx context.Context, userID, id string, patch models.CardPatch) error
	// Delete removes one of the user's cards.
	Delete(ctx context.Context, userID, id string) error
	// Upsert inserts or replaces each card independently.
	Upsert(ctx context.Context, userID string, cards []models.Card) error
}

// CardService implements card operations scoped to one user per call.
type CardService struct {
	repo  CardRepository
	now   func() time.Time
	newID func() string
}

// NewCardService constructs a CardService over repo.
func NewCardService(repo CardRepository) *CardService {
	return &CardService{repo: repo, now: time.Now, newID: uuid.NewString}
}

// List returns the user's cards.
func (s *CardService) List(ctx context.Context, userID string) ([]models.Card, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return s.repo.List(ctx, userID)
}

// Create validates nc, assigns an id and creation time and stores the card.
func (s *CardService) Create(ctx context.Context, userID string, nc models.NewCard) (models.Card, error) {
	if userID == "" {
		return models.Card{}, ErrNoUser
	}
	if err := models.Validate(nc); err != nil {
		return models.Card{}, err
	}
	if nc.UserID != "" && nc.UserID != userID {
		return models.Card{}, fmt.Errorf("%w: user_id does not match the caller", ErrInvalid)
	}
	color := nc.Color
	if color == "" {
		color = models.ColorDefault
	}
	card := models.Card{
		ID:        s.newID(),
		UserID:    userID,
		Content:   nc.Content,
		Color:     color,
		Order:     nc.Order,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return models.Card{}, translate(err)
	}
	return card, nil
}

// Update applies a non-empty, valid patch to one of the user's cards.
func (s *CardService) Update(ctx context.Context, userID, id string, patch models.CardPatch) error {
	if userID == "" {
		return ErrNoUser
	}
	if patch.Empty() {
		return fmt.Errorf("%w: empty patch", ErrInvalid)
	}
	if err := models.Validate(patch); err != nil {
		return err
	}
	return translate(s.repo.Update(ctx, userID, id, patch))
}

// Delete removes one of the user's cards.
func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	return translate(s.repo.Delete(ctx, userID, id))
}

// Upsert validates every card, stamps the caller as owner and writes the batch.
// Nothing is written if any card is invalid.
func (s *CardService) Upsert(ctx context.Context, userID string, cards []models.Card) error {
	if userID == "" {
		return ErrNoUser
	}
	rows := make([]models.Card, len(cards))
	for i, c := range cards {
		if err := models.Validate(c); err != nil {
			return fmt.Errorf("card %d: %w", i, err)
		}
		if c.UserID != "" && c.UserID != userID {
			return fmt.Errorf("%w: card %d belongs to another user", ErrInvalid, i)
		}
		c.UserID = userID
		rows[i] = c
	}
	if len(rows) == 0 {
		return nil
	}
	return translate(s.repo.Upsert(ctx, userID, rows))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return err
	}
}
