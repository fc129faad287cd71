package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_KindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Conflictf("order %s changed", "o1"))

	if !errors.Is(err, ErrConflict) {
		t.Error("expected wrapped error to match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("conflict should not match ErrNotFound")
	}
	if KindOf(err) != KindConflict {
		t.Errorf("expected conflict kind, got %s", KindOf(err))
	}
	if MessageOf(err) != "order o1 changed" {
		t.Errorf("unexpected message %q", MessageOf(err))
	}
}

func TestError_UnknownIsInternal(t *testing.T) {
	err := errors.New("disk on fire")
	if KindOf(err) != KindInternal {
		t.Errorf("expected internal, got %s", KindOf(err))
	}
	if MessageOf(err) != "internal error" {
		t.Errorf("internal detail leaked: %q", MessageOf(err))
	}

	wrapped := Internal("unable to load order", err)
	if !errors.Is(wrapped, err) {
		t.Error("expected cause to be preserved")
	}
}
