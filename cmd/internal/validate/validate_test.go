package validate

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"full_name" validate:"required,min=2"`
	Leverage int     `json:"leverage" validate:"gte=1,lte=125"`
	Side     string  `json:"side,omitempty" validate:"omitempty,oneof=LONG SHORT"`
	Capital  float64 `json:"capital_usdt" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	ok := sample{Email: "a@b.co", Name: "Al", Leverage: 10, Capital: 100}
	if err := Struct(ok); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := sample{Email: "nope", Leverage: 200, Side: "UP"}
	err := Struct(bad)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InputError, got %T", err)
	}
	for _, field := range []string{"email", "full_name", "leverage", "side", "capital_usdt"} {
		if _, ok := ie.Fields[field]; !ok {
			t.Fatalf("expected %q in %v", field, ie.Fields)
		}
	}
	if !strings.Contains(ie.Fields["email"], "valid email") {
		t.Fatalf("email message=%q", ie.Fields["email"])
	}
}

func TestField(t *testing.T) {
	err := Field("password", "too short")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput")
	}
	if err.Error() != "invalid input: too short" {
		t.Fatalf("Error()=%q", err.Error())
	}
}
