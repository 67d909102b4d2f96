// Package repository provides the PostgreSQL persistence of cards for the server.
// Every statement is scoped to a single user.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/shoebox/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no row matches the id for the user.
	ErrNotFound = errors.New("card not found")
	// ErrConflict is returned when an insert reuses an existing id.
	ErrConflict = errors.New("card already exists")
)

const uniqueViolation = "23505"

const cardColumns = `id, user_id, content, color, "order", is_archived, created_at`

// PostgresCardRepository implements card storage against a PostgreSQL database.
type PostgresCardRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresCardRepository creates a repository over db.
// db must be a valid connection to a PostgreSQL instance with the cards table.
func NewPostgresCardRepository(db *sql.DB) *PostgresCardRepository {
	return &PostgresCardRepository{DB: db}
}

// List fetches all cards of the user, in custom order.
//
//	ctx:    context for cancellation and deadlines
//	userID: owner of the cards
//
// Returns an empty slice when the user has no cards.
func (r *PostgresCardRepository) List(ctx context.Context, userID string) ([]models.Card, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY "order", created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.Content, &c.Color, &c.Order, &c.IsArchived, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// Create inserts a fully populated card. The card's UserID is the owner.
//
// Returns ErrConflict if the id is taken.
func (r *PostgresCardRepository) Create(ctx context.Context, c models.Card) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $6 THEN now() ELSE NULL END)
	`, c.ID, c.UserID, c.Content, string(c.Color), c.Order, c.IsArchived, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to one of the user's cards.
// Archiving stamps archived_at and restoring clears it.
//
// Returns ErrNotFound if the user has no card with that id.
func (r *PostgresCardRepository) Update(ctx context.Context, userID, id string, patch models.CardPatch) error {
	if patch.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, strings.ReplaceAll(expr, "?", fmt.Sprintf("$%d", len(args))))
	}
	if patch.Content != nil {
		add("content = ?", *patch.Content)
	}
	if patch.Color != nil {
		add("color = ?", string(*patch.Color))
	}
	if patch.Order != nil {
		add(`"order" = ?`, *patch.Order)
	}
	if patch.IsArchived != nil {
		add("is_archived = ?, archived_at = CASE WHEN ? THEN now() ELSE NULL END", *patch.IsArchived)
	}
	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE cards SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireRow(res)
}

// Delete removes one of the user's cards.
//
// Returns ErrNotFound if the user has no card with that id.
func (r *PostgresCardRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(res)
}

// Upsert inserts or replaces each card by id, one statement per card.
// The rows are independent: a failure leaves the earlier rows applied.
// A card whose id belongs to another user is not touched and yields ErrNotFound.
func (r *PostgresCardRepository) Upsert(ctx context.Context, userID string, cards []models.Card) error {
	for _, c := range cards {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := r.DB.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`, archived_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $6 THEN now() ELSE NULL END)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				color = EXCLUDED.color,
				"order" = EXCLUDED."order",
				is_archived = EXCLUDED.is_archived,
				archived_at = CASE WHEN EXCLUDED.is_archived THEN COALESCE(cards.archived_at, now()) ELSE NULL END
			WHERE cards.user_id = EXCLUDED.user_id
		`, c.ID, userID, c.Content, string(c.Color), c.Order, c.IsArchived, createdAt)
		if err != nil {
			return fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
