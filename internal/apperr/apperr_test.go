package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("qty out of bounds"), KindValidation},
		{"conflict", Conflict("address %s exhausted", "A1"), KindConflict},
		{"authorization", Authorization("invalid session"), KindAuthorization},
		{"not found", NotFound("line %d", 7), KindNotFound},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reserve failed: %w", Conflict("insufficient availability"))
	if !IsConflict(err) {
		t.Fatalf("wrapped conflict not detected: %v", err)
	}
	if IsValidation(err) {
		t.Fatalf("wrapped conflict misclassified as validation")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := Wrap(cause, KindConflict, "atomic write failed its condition")
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost in wrapping")
	}
}

func TestMessageFormatting(t *testing.T) {
	err := Conflict("return of %d exceeds outstanding %d", 5, 3)
	want := "return of 5 exceeds outstanding 3"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
