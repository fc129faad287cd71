package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "pharma.db")
	store, err := Open(context.Background(), DialectSQLite, dsn, Options{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedBatch(t *testing.T, s *SQLStore, id, entityID, number string, qty int) domain.Batch {
	t.Helper()
	b := domain.Batch{
		ID:          id,
		MedicineID:  "M1",
		EntityID:    entityID,
		BatchNumber: number,
		Quantity:    qty,
		ExpiryDate:  domain.NewDate(2026, 12, 31),
		Location:    "Pharmacy",
		UnitCost:    decimal.RequireFromString("12.50"),
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
	if err := s.CreateBatch(context.Background(), b); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return b
}

func seedOrder(t *testing.T, s *SQLStore, id, from, to string, created time.Time) domain.Order {
	t.Helper()
	o := domain.Order{
		ID:           id,
		FromEntityID: from,
		ToEntityID:   to,
		MedicineID:   "M1",
		Quantity:     10,
		Priority:     domain.PriorityNormal,
		Status:       domain.OrderStatusNew,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := s.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}

func TestCatalog_RoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	entity := domain.Entity{ID: "H1", Kind: domain.EntityHospital, Name: "City Hospital", Location: "North", CreatedAt: baseTime}
	if err := s.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("create entity: %v", err)
	}
	got, err := s.GetEntity(ctx, "H1")
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if got.Kind != domain.EntityHospital || !got.CreatedAt.Equal(baseTime) {
		t.Errorf("unexpected entity %+v", got)
	}
	if _, err := s.GetEntity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	med := domain.Medicine{ID: "M1", Name: "Insulin", Type: domain.MedicineCritical, RequiresRefrigeration: true, CreatedAt: baseTime}
	if err := s.CreateMedicine(ctx, med); err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	meds, err := s.ListMedicines(ctx)
	if err != nil || len(meds) != 1 {
		t.Fatalf("list medicines: %v %v", meds, err)
	}
	if !meds[0].RequiresRefrigeration || meds[0].Type != domain.MedicineCritical {
		t.Errorf("unexpected medicine %+v", meds[0])
	}
}

func TestBatches_ScopeAndDecimal(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	seedBatch(t, s, "b1", "R1", "LOT-1", 100)
	seedBatch(t, s, "b2", "R2", "LOT-1", 100)

	scoped, err := s.ListBatches(ctx, domain.Predicate{Field: domain.ScopeHolderID, EntityID: "R1"})
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != "b1" {
		t.Errorf("expected only b1 for R1, got %+v", scoped)
	}
	if !scoped[0].UnitCost.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected unit cost %s", scoped[0].UnitCost)
	}
	if scoped[0].ExpiryDate != domain.NewDate(2026, 12, 31) {
		t.Errorf("unexpected expiry %s", scoped[0].ExpiryDate)
	}
	if scoped[0].Status != "" {
		t.Error("storage must not supply a status")
	}

	if _, err := s.GetBatch(ctx, "b2", domain.Predicate{Field: domain.ScopeHolderID, EntityID: "R1"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected out-of-scope batch to be ErrNotFound, got %v", err)
	}

	all, _ := s.ListBatches(ctx, domain.Predicate{})
	if len(all) != 2 {
		t.Errorf("expected 2 batches unscoped, got %d", len(all))
	}
}

func TestCreateBatch_DuplicateNumber(t *testing.T) {
	s := newSQLiteStore(t)
	seedBatch(t, s, "b1", "R1", "LOT-1", 100)

	dup := domain.Batch{ID: "b2", MedicineID: "M1", EntityID: "R1", BatchNumber: "LOT-1", Quantity: 1,
		ExpiryDate: domain.NewDate(2027, 1, 1), CreatedAt: baseTime, UpdatedAt: baseTime}
	if err := s.CreateBatch(context.Background(), dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestUpdateBatchQuantity_OptimisticLock(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	seedBatch(t, s, "b1", "R1", "LOT-1", 100)

	if err := s.UpdateBatchQuantity(ctx, "b1", 90, 1, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := s.UpdateBatchQuantity(ctx, "b1", 80, 1, baseTime.Add(time.Hour)); !errors.Is(err, ErrOptimisticLock) {
		t.Errorf("expected ErrOptimisticLock on stale version, got %v", err)
	}

	b, _ := s.GetBatch(ctx, "b1", domain.Predicate{})
	if b.Quantity != 90 || b.Version != 2 {
		t.Errorf("expected 90 units at version 2, got %d at %d", b.Quantity, b.Version)
	}
}

func TestListBatchIDs_Pages(t *testing.T) {
	s := newSQLiteStore(t)
	for i := 0; i < 7; i++ {
		seedBatch(t, s, fmt.Sprintf("b%02d", i), "R1", fmt.Sprintf("LOT-%d", i), 10)
	}

	var seen []string
	after := ""
	for {
		ids, err := s.ListBatchIDs(context.Background(), after, 3)
		if err != nil {
			t.Fatalf("list ids: %v", err)
		}
		seen = append(seen, ids...)
		if len(ids) < 3 {
			break
		}
		after = ids[len(ids)-1]
	}
	if len(seen) != 7 || seen[0] != "b00" || seen[6] != "b06" {
		t.Errorf("unexpected ids %v", seen)
	}
}

func TestOrders_ScopedListAndCount(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	seedOrder(t, s, "o1", "H1", "R1", baseTime)
	seedOrder(t, s, "o2", "H1", "R2", baseTime.Add(time.Minute))
	seedOrder(t, s, "o3", "H2", "R1", baseTime.Add(2*time.Minute))

	retailer := domain.Predicate{Field: domain.ScopeToEntityID, EntityID: "R1"}
	orders, total, err := s.ListOrders(ctx, retailer, domain.Page{Limit: 1, Offset: 0})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if total != 2 {
		t.Errorf("expected scoped total 2, got %d", total)
	}
	if len(orders) != 1 || orders[0].ID != "o3" {
		t.Errorf("expected newest R1 order o3, got %+v", orders)
	}

	orders, _, _ = s.ListOrders(ctx, retailer, domain.Page{Limit: 10, Offset: 1})
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Errorf("expected o1 on second page, got %+v", orders)
	}

	if _, err := s.GetOrder(ctx, "o2", retailer); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound outside scope, got %v", err)
	}

	_, total, _ = s.ListOrders(ctx, domain.Predicate{Field: "bogus"}, domain.Page{Limit: 10})
	if total != 0 {
		t.Errorf("unknown predicate must match nothing, got %d", total)
	}
}

func TestUpdateOrderStatus_ConcurrentCAS(t *testing.T) {
	s := newSQLiteStore(t)
	seedOrder(t, s, "o1", "H1", "R1", baseTime)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusNew, domain.OrderStatusConfirmed, baseTime)
			if err == nil {
				successCount.Add(1)
			} else if !errors.Is(err, ErrOptimisticLock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 successful swap, got %d", successCount.Load())
	}
	o, _ := s.GetOrder(context.Background(), "o1", domain.Predicate{})
	if o.Status != domain.OrderStatusConfirmed || o.Version != 2 {
		t.Errorf("unexpected order state %s v%d", o.Status, o.Version)
	}
}

func TestSumDemand(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	seedOrder(t, s, "o1", "H1", "R1", baseTime.Add(-40*24*time.Hour))
	seedOrder(t, s, "o2", "H1", "R1", baseTime.Add(-10*24*time.Hour))
	seedOrder(t, s, "o3", "H2", "R1", baseTime.Add(-5*24*time.Hour))
	seedOrder(t, s, "o4", "H2", "R1", baseTime.Add(-2*24*time.Hour))
	if err := s.UpdateOrderStatus(ctx, "o4", domain.OrderStatusNew, domain.OrderStatusCancelled, baseTime); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	qty, n, err := s.SumDemand(ctx, "M1", baseTime.Add(-30*24*time.Hour), baseTime)
	if err != nil {
		t.Fatalf("sum demand: %v", err)
	}
	if qty != 20 || n != 2 {
		t.Errorf("expected 20 units over 2 orders, got %d over %d", qty, n)
	}

	qty, n, _ = s.SumDemand(ctx, "M9", baseTime.Add(-30*24*time.Hour), baseTime)
	if qty != 0 || n != 0 {
		t.Errorf("expected no demand, got %d/%d", qty, n)
	}
}

func TestAlerts_NewestFirst(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := domain.Alert{ID: fmt.Sprintf("a%d", i), Type: domain.AlertInfo, Message: "m", EntityID: "R1", CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
		if err := s.InsertAlert(ctx, a); err != nil {
			t.Fatalf("insert alert: %v", err)
		}
	}
	s.InsertAlert(ctx, domain.Alert{ID: "other", Type: domain.AlertInfo, Message: "m", EntityID: "R2", CreatedAt: baseTime})

	alerts, err := s.ListAlerts(ctx, "R1")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 3 || alerts[0].ID != "a2" || alerts[2].ID != "a0" {
		t.Errorf("unexpected order %+v", alerts)
	}
}

func TestClaims_AtomicAndReleasable(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	key := domain.ClaimKey{SubjectID: "b1", Status: "Critical"}

	var claimed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Claim(ctx, key, fmt.Sprintf("alert-%d", i))
			if err != nil {
				t.Errorf("claim failed: %v", err)
			}
			if ok {
				claimed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if claimed.Load() != 1 {
		t.Fatalf("expected exactly 1 claim, got %d", claimed.Load())
	}

	// a stale owner cannot drop the claim
	if err := s.Unclaim(ctx, key, "not-the-owner"); err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if ok, _ := s.Claim(ctx, key, "late"); ok {
		t.Error("claim should still be held")
	}

	if err := s.Release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := s.Claim(ctx, key, "relapse"); !ok {
		t.Error("expected claim to be available after release")
	}
}
