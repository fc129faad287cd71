package port

import (
	"context"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type EventPublisher interface {
	// Publish delivers an event to the bus. Callers treat failures as non-fatal.
	Publish(ctx context.Context, event domain.Event) error

	Close() error
}
