package port

import (
	"context"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

// AnalyticsOracle is the opaque forecast and expiry-risk provider. It may be
// slow, fail, or ignore ctx entirely.
type AnalyticsOracle interface {
	PredictDemand(ctx context.Context, medicineID string) (*domain.Forecast, error)
	AnalyzeExpiryRisk(ctx context.Context, entityID string) (*domain.RiskReport, error)
}
