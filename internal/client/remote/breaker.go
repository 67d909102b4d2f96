package remote

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker around a remote repository.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// The breaker opens once MinRequests calls were made in an interval
	// and the failure ratio reaches FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used by the client binary.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// BreakerRepository fails fast with gobreaker.ErrOpenState while the
// wrapped repository keeps failing.
type BreakerRepository struct {
	next shoebox.Repository
	cb   *gobreaker.CircuitBreaker
}

var _ shoebox.Repository = (*BreakerRepository)(nil)

// NewBreakerRepository wraps next. Not-found and missing-identity errors
// are answers, not outages, and do not count against the breaker.
func NewBreakerRepository(next shoebox.Repository, cfg BreakerConfig, log *zap.Logger) *BreakerRepository {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, shoebox.ErrCardNotFound) ||
				errors.Is(err, shoebox.ErrNoIdentity) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &BreakerRepository{next: next, cb: cb}
}

// State reports the breaker's current state.
func (b *BreakerRepository) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRepository) FetchAll(ctx context.Context) ([]models.Card, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]models.Card), nil
}

func (b *BreakerRepository) Insert(ctx context.Context, card models.NewCard) (models.Card, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Insert(ctx, card)
	})
	if err != nil {
		return models.Card{}, err
	}
	return res.(models.Card), nil
}

func (b *BreakerRepository) Update(ctx context.Context, id string, patch models.CardPatch) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Update(ctx, id, patch)
	})
	return err
}

func (b *BreakerRepository) Delete(ctx context.Context, id string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, id)
	})
	return err
}

func (b *BreakerRepository) Upsert(ctx context.Context, cards []models.Card) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Upsert(ctx, cards)
	})
	return err
}
