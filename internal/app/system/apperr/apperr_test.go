package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := Validation("divide", "amount must be positive").WithEntry("divisions[1]")
	want := "divide: divisions[1]: amount must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := Conflict("assign", "user already has an active target")
	wrapped := fmt.Errorf("handler: %w", base)

	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("KindOf = %v, want %v", got, KindConflict)
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors should be internal")
	}
}

func TestVersionConflict_Is(t *testing.T) {
	err := fmt.Errorf("replace target: %w", ErrVersionConflict)
	if !errors.Is(err, ErrVersionConflict) {
		t.Error("expected errors.Is to match ErrVersionConflict")
	}
	if errors.Is(Conflict("x", "y"), ErrVersionConflict) {
		t.Error("conflict errors must not match the concurrency sentinel")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("op", "bad"), http.StatusBadRequest},
		{"not found", NotFound("op", "missing"), http.StatusNotFound},
		{"permission", Permission("op", "nope"), http.StatusForbidden},
		{"conflict", Conflict("op", "dup"), http.StatusConflict},
		{"concurrency", ErrVersionConflict, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}
