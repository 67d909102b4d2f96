// Package models defines the card entity and the payloads used to create and patch it.
package models

import "time"

// Color is the visual tag of a card.
type Color string

const (
	// ColorDefault is the plain card color and the default for new cards.
	ColorDefault Color = "default"
	// ColorYellow marks a yellow card.
	ColorYellow Color = "yellow"
	// ColorBlue marks a blue card.
	ColorBlue Color = "blue"
	// ColorPink marks a pink card.
	ColorPink Color = "pink"
)

// Colors lists every valid card color in display order.
func Colors() []Color {
	return []Color{ColorDefault, ColorYellow, ColorBlue, ColorPink}
}

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	switch c {
	case ColorDefault, ColorYellow, ColorBlue, ColorPink:
		return true
	}
	return false
}

// SortMode selects how the card collection is ordered.
type SortMode string

const (
	// SortCustom orders by the user-controlled Order field.
	SortCustom SortMode = "custom"
	// SortNewest orders by creation time, newest first.
	SortNewest SortMode = "newest"
	// SortOldest orders by creation time, oldest first.
	SortOldest SortMode = "oldest"
)

// Valid reports whether m is one of the known sort modes.
func (m SortMode) Valid() bool {
	switch m {
	case SortCustom, SortNewest, SortOldest:
		return true
	}
	return false
}

// Card is a single user note.
type Card struct {
	// ID is the unique identifier assigned by the backing store.
	ID string `json:"id" validate:"required"`
	// Content is free text and may be empty.
	Content string `json:"content"`
	// Color is one of the values returned by Colors.
	Color Color `json:"color" validate:"oneof=default yellow blue pink"`
	// Order positions the card inside its archival partition.
	// Values need not be contiguous or non-negative.
	Order int `json:"order"`
	// CreatedAt is only used as a sort tiebreaker.
	CreatedAt time.Time `json:"created_at"`
	// IsArchived moves the card from the working surface to the trash.
	IsArchived bool `json:"is_archived"`
	// UserID is the ownership stamp required by server-backed stores.
	UserID string `json:"user_id,omitempty"`
}

// NewCard is the payload of an insert. The store assigns ID and CreatedAt.
type NewCard struct {
	Content string `json:"content"`
	Color   Color  `json:"color" validate:"omitempty,oneof=default yellow blue pink"`
	Order   int    `json:"order"`
	UserID  string `json:"user_id,omitempty"`
}

// CardPatch carries the fields of a partial update. Nil fields are left untouched.
type CardPatch struct {
	Content    *string `json:"content,omitempty"`
	Color      *Color  `json:"color,omitempty" validate:"omitempty,oneof=default yellow blue pink"`
	IsArchived *bool   `json:"is_archived,omitempty"`
	Order      *int    `json:"order,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CardPatch) Empty() bool {
	return p.Content == nil && p.Color == nil && p.IsArchived == nil && p.Order == nil
}

// Apply writes the non-nil fields of p into c.
func (p CardPatch) Apply(c *Card) {
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.IsArchived != nil {
		c.IsArchived = *p.IsArchived
	}
	if p.Order != nil {
		c.Order = *p.Order
	}
}
