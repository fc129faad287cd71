// Package oracle provides a heuristic analytics provider built on order
// history and stock on hand. It stands in for a trained model.
package oracle

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

const (
	demandWindow      = 30 * 24 * time.Hour
	increaseThreshold = 20.0
	maxConfidence     = 0.99
)

var defaultHighRiskValue = decimal.NewFromInt(10000)

// Strategies suggested per risk level.
const (
	StrategyTransfer = "Transfer to nearby retailer"
	StrategyFEFO     = "Prioritise first-expiry-first-out dispensing"
	StrategyNone     = "No action required"
)

type Heuristic struct {
	orders        port.OrderRepository
	medicines     port.MedicineRepository
	batches       port.BatchRepository
	policy        domain.StatusPolicy
	highRiskValue decimal.Decimal
	now           func() time.Time
}

func NewHeuristic(orders port.OrderRepository, medicines port.MedicineRepository, batches port.BatchRepository, policy domain.StatusPolicy) *Heuristic {
	return &Heuristic{
		orders:        orders,
		medicines:     medicines,
		batches:       batches,
		policy:        policy,
		highRiskValue: defaultHighRiskValue,
		now:           time.Now,
	}
}

// PredictDemand compares order volume over the last 30 days with the 30 days
// before. Confidence grows with the number of orders observed.
func (h *Heuristic) PredictDemand(ctx context.Context, medicineID string) (*domain.Forecast, error) {
	if _, err := h.medicines.GetMedicine(ctx, medicineID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, domain.NotFoundf("medicine %s not found", medicineID)
		}
		return nil, err
	}

	now := h.now().UTC()
	recent, recentOrders, err := h.orders.SumDemand(ctx, medicineID, now.Add(-demandWindow), now)
	if err != nil {
		return nil, err
	}
	previous, previousOrders, err := h.orders.SumDemand(ctx, medicineID, now.Add(-2*demandWindow), now.Add(-demandWindow))
	if err != nil {
		return nil, err
	}

	var growth float64
	switch {
	case previous > 0:
		growth = float64(recent-previous) / float64(previous) * 100
	case recent > 0:
		growth = 100
	}
	growth = math.Round(growth*10) / 10

	confidence := math.Min(maxConfidence, 0.5+0.05*float64(recentOrders+previousOrders))

	recommendation := domain.RecommendMaintainStock
	if growth > increaseThreshold {
		recommendation = domain.RecommendIncreaseStock
	}

	next := recent
	if previous > 0 {
		next = int(math.Round(float64(recent) * (1 + growth/100)))
	}
	if next < 0 {
		next = 0
	}

	return &domain.Forecast{
		MedicineID:         medicineID,
		PredictedGrowthPct: growth,
		Confidence:         math.Round(confidence*100) / 100,
		Recommendation:     recommendation,
		NextPeriodDemand:   next,
	}, nil
}

// AnalyzeExpiryRisk values the stock an entity holds that expires within the
// low-stock window.
func (h *Heuristic) AnalyzeExpiryRisk(ctx context.Context, entityID string) (*domain.RiskReport, error) {
	batches, err := h.batches.ListBatches(ctx, domain.Predicate{Field: domain.ScopeHolderID, EntityID: entityID})
	if err != nil {
		return nil, err
	}

	now := h.now()
	report := &domain.RiskReport{EntityID: entityID, AtRiskValue: decimal.Zero}
	urgent := false
	for _, b := range batches {
		if b.Quantity == 0 {
			continue
		}
		status := h.policy.Classify(b.Quantity, b.ExpiryDate, now)
		if domain.DateOf(now).DaysUntil(b.ExpiryDate) > h.policy.LowStockDays {
			continue
		}
		report.ExpiringBatchCount++
		report.AtRiskValue = report.AtRiskValue.Add(b.UnitCost.Mul(decimal.NewFromInt(int64(b.Quantity))))
		if status.Alerting() {
			urgent = true
		}
	}

	switch {
	case report.ExpiringBatchCount == 0:
		report.RiskLevel = domain.RiskLow
		report.Strategy = StrategyNone
	case urgent || report.AtRiskValue.GreaterThanOrEqual(h.highRiskValue):
		report.RiskLevel = domain.RiskHigh
		report.Strategy = StrategyTransfer
	default:
		report.RiskLevel = domain.RiskMedium
		report.Strategy = StrategyFEFO
	}
	return report, nil
}
