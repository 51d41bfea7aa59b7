package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	t.Run("should build the error from its options", func(t *testing.T) {
		err := NewAPIError(WithKind(KindSlotConflict), WithDetail("time slot already booked"), WithHTTPStatusCode(http.StatusConflict))
		if err.Error() != "time slot already booked" {
			t.Errorf("Error() = %q, want %q", err.Error(), "time slot already booked")
		}
		if err.HTTPStatusCode() != http.StatusConflict {
			t.Errorf("HTTPStatusCode() = %d, want %d", err.HTTPStatusCode(), http.StatusConflict)
		}
	})

	t.Run("should default to status 500 when no status was set", func(t *testing.T) {
		err := NewAPIError(WithKind(KindNotFound))
		if err.HTTPStatusCode() != http.StatusInternalServerError {
			t.Errorf("HTTPStatusCode() = %d, want %d", err.HTTPStatusCode(), http.StatusInternalServerError)
		}
	})

	t.Run("should fall back to the kind when no detail was set", func(t *testing.T) {
		err := NewAPIError(WithKind(KindNotFound))
		if err.Error() != "not_found" {
			t.Errorf("Error() = %q, want %q", err.Error(), "not_found")
		}
	})
}

func TestIsKind(t *testing.T) {
	conflict := NewAPIError(WithKind(KindSlotConflict))

	if !IsKind(conflict, KindSlotConflict) {
		t.Error("IsKind() = false, want true for a matching kind")
	}
	if IsKind(conflict, KindNotFound) {
		t.Error("IsKind() = true, want false for a different kind")
	}
	if !IsKind(fmt.Errorf("booking failed: %w", conflict), KindSlotConflict) {
		t.Error("IsKind() = false, want true for a wrapped APIError")
	}
	if IsKind(errors.New("plain error"), KindSlotConflict) {
		t.Error("IsKind() = true, want false for a plain error")
	}
	if IsKind(nil, KindSlotConflict) {
		t.Error("IsKind() = true, want false for a nil error")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("start_time", "must be a valid HH:mm time")
	if err.Error() != "start_time: must be a valid HH:mm time" {
		t.Errorf("Error() = %q", err.Error())
	}
}
