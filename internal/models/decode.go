package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDecode is returned when a backend row cannot be turned into a Card.
	ErrDecode = errors.New("malformed card data")
	// ErrInvalid is returned when a payload fails validation.
	ErrInvalid = errors.New("invalid card data")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so errors match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct validation on a Card, NewCard or CardPatch.
// Failures wrap ErrInvalid.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DecodeCards decodes a JSON array of cards and validates every element.
func DecodeCards(data []byte) ([]Card, error) {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	for i := range cards {
		if err := validate.Struct(&cards[i]); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrDecode, i, err)
		}
	}
	if cards == nil {
		cards = []Card{}
	}
	return cards, nil
}

// DecodeCard decodes and validates a single JSON card object.
func DecodeCard(data []byte) (Card, error) {
	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return Card{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := validate.Struct(&card); err != nil {
		return Card{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return card, nil
}
