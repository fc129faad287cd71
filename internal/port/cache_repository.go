package port

import (
	"context"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type AlertDeduplicator interface {
	// Claim atomically marks key as alerted, returns false if already claimed
	Claim(ctx context.Context, key domain.ClaimKey, alertID string) (bool, error)

	// Release removes claims once the subject has recovered
	Release(ctx context.Context, keys ...domain.ClaimKey) error

	// Unclaim removes a claim only while alertID holds it (rollback on failure)
	Unclaim(ctx context.Context, key domain.ClaimKey, alertID string) error
}
