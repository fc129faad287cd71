package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClassify_Examples(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	today := DateOf(now)
	policy := DefaultStatusPolicy()

	tests := []struct {
		name     string
		quantity int
		expiry   Date
		want     BatchStatus
	}{
		{"plenty but expiring in 10 days", 200, today.AddDays(10), BatchCritical},
		{"plenty and long dated", 200, today.AddDays(200), BatchInStock},
		{"few units long dated", 10, today.AddDays(200), BatchLowStock},
		{"expired yesterday", 200, today.AddDays(-1), BatchExpired},
		{"expires today", 200, today, BatchExpired},
		{"critical boundary", 200, today.AddDays(30), BatchCritical},
		{"low stock window start", 200, today.AddDays(31), BatchLowStock},
		{"low stock window end", 200, today.AddDays(90), BatchLowStock},
		{"just past low stock window", 200, today.AddDays(91), BatchInStock},
		{"quantity boundary", 50, today.AddDays(91), BatchInStock},
		{"below quantity boundary", 49, today.AddDays(91), BatchLowStock},
		{"exhausted batch", 0, today.AddDays(365), BatchLowStock},
		{"exhausted and expired", 0, today.AddDays(-30), BatchExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Classify(tt.quantity, tt.expiry, now)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	policy := DefaultStatusPolicy()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := DateOf(now)

	for days := -5; days <= 120; days++ {
		for _, qty := range []int{0, 1, 49, 50, 51, 1000} {
			first := policy.Classify(qty, base.AddDays(days), now)
			for i := 0; i < 3; i++ {
				if again := policy.Classify(qty, base.AddDays(days), now); again != first {
					t.Fatalf("classify(%d, +%d) not deterministic: %s then %s", qty, days, first, again)
				}
			}
			switch first {
			case BatchInStock, BatchLowStock, BatchCritical, BatchExpired:
			default:
				t.Fatalf("classify(%d, +%d) returned unknown status %q", qty, days, first)
			}
		}
	}
}

func TestClassify_TimeOfDayIgnored(t *testing.T) {
	policy := DefaultStatusPolicy()
	expiry := NewDate(2026, 5, 11)

	morning := time.Date(2026, 5, 1, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 5, 1, 23, 59, 59, 0, time.UTC)

	if a, b := policy.Classify(100, expiry, morning), policy.Classify(100, expiry, night); a != b {
		t.Errorf("expected same status within a day, got %s and %s", a, b)
	}
}

func TestClassify_CustomPolicy(t *testing.T) {
	policy := StatusPolicy{CriticalDays: 7, LowStockDays: 14, LowStockQuantity: 5}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	today := DateOf(now)

	if got := policy.Classify(100, today.AddDays(10), now); got != BatchLowStock {
		t.Errorf("expected Low Stock, got %s", got)
	}
	if got := policy.Classify(4, today.AddDays(60), now); got != BatchLowStock {
		t.Errorf("expected Low Stock, got %s", got)
	}
	if got := policy.Classify(5, today.AddDays(60), now); got != BatchInStock {
		t.Errorf("expected In Stock, got %s", got)
	}
}

func TestBatchStatus_Severity(t *testing.T) {
	order := []BatchStatus{BatchInStock, BatchLowStock, BatchCritical, BatchExpired}
	for i := 1; i < len(order); i++ {
		if order[i].Severity() <= order[i-1].Severity() {
			t.Errorf("expected %s to be more severe than %s", order[i], order[i-1])
		}
	}
	if BatchLowStock.Alerting() || !BatchCritical.Alerting() || !BatchExpired.Alerting() {
		t.Error("only Critical and Expired should alert")
	}
}

func TestCreateBatchRequest_Validate(t *testing.T) {
	qty := 10
	neg := -1
	expiry := NewDate(2027, 1, 1)

	tests := []struct {
		name string
		req  CreateBatchRequest
		ok   bool
	}{
		{"valid", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &qty, ExpiryDate: &expiry}, true},
		{"missing quantity", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", ExpiryDate: &expiry}, false},
		{"negative quantity", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &neg, ExpiryDate: &expiry}, false},
		{"missing expiry", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &qty}, false},
		{"missing entity", CreateBatchRequest{MedicineID: "m", BatchNumber: "B1", Quantity: &qty, ExpiryDate: &expiry}, false},
		{"cents", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &qty, ExpiryDate: &expiry, UnitCost: decimal.RequireFromString("12.50")}, true},
		{"trailing zeros", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &qty, ExpiryDate: &expiry, UnitCost: decimal.RequireFromString("12.5000")}, true},
		{"sub-cent cost", CreateBatchRequest{MedicineID: "m", EntityID: "e", BatchNumber: "B1", Quantity: &qty, ExpiryDate: &expiry, UnitCost: decimal.RequireFromString("12.345")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && KindOf(err) != KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
