package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchInStock  BatchStatus = "In Stock"
	BatchLowStock BatchStatus = "Low Stock"
	BatchCritical BatchStatus = "Critical"
	BatchExpired  BatchStatus = "Expired"
)

// Severity orders statuses from least (0) to most (3) urgent.
func (s BatchStatus) Severity() int {
	switch s {
	case BatchLowStock:
		return 1
	case BatchCritical:
		return 2
	case BatchExpired:
		return 3
	default:
		return 0
	}
}

// Alerting reports whether entering s should raise an alert.
func (s BatchStatus) Alerting() bool {
	return s == BatchCritical || s == BatchExpired
}

// Batch is a dated lot of one medicine held by one entity. Status is derived
// and never read from storage.
type Batch struct {
	ID          string          `json:"id"`
	MedicineID  string          `json:"medicineId"`
	EntityID    string          `json:"entityId"`
	BatchNumber string          `json:"batchNumber"`
	Quantity    int             `json:"quantity"`
	ExpiryDate  Date            `json:"expiryDate"`
	Location    string          `json:"location"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Status      BatchStatus     `json:"status"`
	Version     int             `json:"-"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StatusPolicy holds the classifier thresholds.
type StatusPolicy struct {
	// CriticalDays: expiring within this many days is Critical.
	CriticalDays int
	// LowStockDays: expiring within this many days (but beyond CriticalDays) is Low Stock.
	LowStockDays int
	// LowStockQuantity: fewer units than this is Low Stock regardless of expiry.
	LowStockQuantity int
}

func DefaultStatusPolicy() StatusPolicy {
	return StatusPolicy{CriticalDays: 30, LowStockDays: 90, LowStockQuantity: 50}
}

// Classify derives the urgency status of a batch. First match wins:
// expired, critical window, low-stock window, low quantity, in stock.
// Inputs are assumed valid; callers reject negative quantities.
func (p StatusPolicy) Classify(quantity int, expiry Date, now time.Time) BatchStatus {
	days := DateOf(now).DaysUntil(expiry)
	switch {
	case days <= 0:
		return BatchExpired
	case days <= p.CriticalDays:
		return BatchCritical
	case days <= p.LowStockDays:
		return BatchLowStock
	case quantity < p.LowStockQuantity:
		return BatchLowStock
	default:
		return BatchInStock
	}
}

// Refresh recomputes b.Status from its current inputs.
func (p StatusPolicy) Refresh(b *Batch, now time.Time) {
	b.Status = p.Classify(b.Quantity, b.ExpiryDate, now)
}

type CreateBatchRequest struct {
	MedicineID  string          `json:"-"`
	EntityID    string          `json:"entityId"`
	BatchNumber string          `json:"batchNumber"`
	Quantity    *int            `json:"quantity"`
	ExpiryDate  *Date           `json:"expiryDate"`
	Location    string          `json:"location"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

func (r *CreateBatchRequest) Validate() error {
	if r.MedicineID == "" {
		return Validationf("medicineId is required")
	}
	if r.EntityID == "" {
		return Validationf("entityId is required")
	}
	if r.BatchNumber == "" {
		return Validationf("batchNumber is required")
	}
	if r.Quantity == nil {
		return Validationf("quantity is required")
	}
	if *r.Quantity < 0 {
		return Validationf("quantity cannot be negative")
	}
	if r.ExpiryDate == nil || r.ExpiryDate.IsZero() {
		return Validationf("expiryDate is required")
	}
	if r.UnitCost.IsNegative() {
		return Validationf("unitCost cannot be negative")
	}
	// stored as a two-place decimal
	if !r.UnitCost.Equal(r.UnitCost.Round(2)) {
		return Validationf("unitCost supports at most two decimal places")
	}
	return nil
}

// AdjustBatchRequest moves stock in (positive delta, receipt) or out
// (negative delta, consumption).
type AdjustBatchRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (r *AdjustBatchRequest) Validate() error {
	if r.Delta == 0 {
		return Validationf("delta must be non-zero")
	}
	return nil
}
