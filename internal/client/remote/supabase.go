package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/models"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"github.com/supabase-community/supabase-go"
)

// CardsTable is the Supabase table holding card rows.
const CardsTable = "cards"

// SupabaseRepository is a shoebox.Repository over a Supabase "cards" table.
// Every query is filtered on the current identity's user_id.
type SupabaseRepository struct {
	client   *supabase.Client
	identity identity.Provider
	table    string
}

var _ shoebox.Repository = (*SupabaseRepository)(nil)

// NewSupabaseClient connects to a Supabase project. A non-empty accessToken
// replaces the anon key as bearer so row level security sees the user.
func NewSupabaseClient(projectURL, anonKey, accessToken string) (*supabase.Client, error) {
	var opts *supabase.ClientOptions
	if accessToken != "" {
		opts = &supabase.ClientOptions{Headers: map[string]string{"Authorization": "Bearer " + accessToken}}
	}
	client, err := supabase.NewClient(projectURL, anonKey, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to create supabase client: %w", err)
	}
	return client, nil
}

// NewSupabaseRepository returns a repository over the cards table.
func NewSupabaseRepository(client *supabase.Client, ident identity.Provider) *SupabaseRepository {
	return &SupabaseRepository{client: client, identity: ident, table: CardsTable}
}

func (r *SupabaseRepository) user(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := r.identity.CurrentUserID()
	if id == "" {
		return "", shoebox.ErrNoIdentity
	}
	return id, nil
}

// FetchAll selects every row owned by the current user.
func (r *SupabaseRepository) FetchAll(ctx context.Context) ([]models.Card, error) {
	userID, err := r.user(ctx)
	if err != nil {
		return nil, err
	}
	data, _, err := r.client.From(r.table).Select("*", "", false).Eq("user_id", userID).Execute()
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	return models.DecodeCards(data)
}

// Insert creates a row and returns its representation.
func (r *SupabaseRepository) Insert(ctx context.Context, card models.NewCard) (models.Card, error) {
	userID, err := r.user(ctx)
	if err != nil {
		return models.Card{}, err
	}
	card.UserID = userID
	if card.Color == "" {
		card.Color = models.ColorDefault
	}
	data, _, err := r.client.From(r.table).Insert(card, false, "", "representation", "").Execute()
	if err != nil {
		return models.Card{}, fmt.Errorf("insert card: %w", err)
	}
	rows, err := models.DecodeCards(data)
	if err != nil {
		return models.Card{}, err
	}
	if len(rows) != 1 {
		return models.Card{}, fmt.Errorf("%w: insert returned %d rows", models.ErrDecode, len(rows))
	}
	return rows[0], nil
}

// Update patches one of the user's rows.
func (r *SupabaseRepository) Update(ctx context.Context, id string, patch models.CardPatch) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}
	data, _, err := r.client.From(r.table).Update(patch, "representation", "").
		Eq("id", id).Eq("user_id", userID).Execute()
	if err != nil {
		return fmt.Errorf("update card %s: %w", id, err)
	}
	rows, err := models.DecodeCards(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("update card %s: %w", id, shoebox.ErrCardNotFound)
	}
	return nil
}

// Delete removes one of the user's rows.
func (r *SupabaseRepository) Delete(ctx context.Context, id string) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}
	if _, _, err := r.client.From(r.table).Delete("minimal", "").Eq("id", id).Eq("user_id", userID).Execute(); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// Upsert merges the batch on id. Rows are stamped with the current user.
func (r *SupabaseRepository) Upsert(ctx context.Context, cards []models.Card) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return nil
	}
	rows := make([]models.Card, len(cards))
	for i, c := range cards {
		if c.UserID != "" && c.UserID != userID {
			return errors.New("upsert cards: row belongs to another user")
		}
		c.UserID = userID
		rows[i] = c
	}
	if _, _, err := r.client.From(r.table).Upsert(rows, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	return nil
}
