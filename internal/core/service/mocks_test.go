package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// Mock store implementing every repository port
type mockStore struct {
	mu        sync.Mutex
	entities  map[string]domain.Entity
	medicines map[string]domain.Medicine
	batches   map[string]domain.Batch
	orders    map[string]domain.Order
	alerts    []domain.Alert

	failInsertAlert   bool
	lockFailuresLeft  int
	updateBatchCalled int
}

func newMockStore() *mockStore {
	return &mockStore{
		entities:  make(map[string]domain.Entity),
		medicines: make(map[string]domain.Medicine),
		batches:   make(map[string]domain.Batch),
		orders:    make(map[string]domain.Order),
	}
}

func (m *mockStore) repos() Repositories {
	return Repositories{Entities: m, Medicines: m, Batches: m, Orders: m, Alerts: m}
}

func (m *mockStore) CreateEntity(ctx context.Context, e domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	return nil
}

func (m *mockStore) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &e, nil
}

func (m *mockStore) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entity
	for _, e := range m.entities {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockStore) CreateMedicine(ctx context.Context, med domain.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicines[med.ID] = med
	return nil
}

func (m *mockStore) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.medicines[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &med, nil
}

func (m *mockStore) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Medicine
	for _, med := range m.medicines {
		out = append(out, med)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) CreateBatch(ctx context.Context, b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Status = ""
	m.batches[b.ID] = b
	return nil
}

func (m *mockStore) GetBatch(ctx context.Context, id string, scope domain.Predicate) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || !scope.MatchesBatch(b) {
		return nil, port.ErrNotFound
	}
	return &b, nil
}

func (m *mockStore) ListBatches(ctx context.Context, scope domain.Predicate) ([]domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Batch
	for _, b := range m.batches {
		if scope.MatchesBatch(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockStore) ListBatchIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.batches {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockStore) UpdateBatchQuantity(ctx context.Context, id string, quantity, version int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateBatchCalled++
	if m.lockFailuresLeft > 0 {
		m.lockFailuresLeft--
		return port.ErrOptimisticLock
	}
	b, ok := m.batches[id]
	if !ok || b.Version != version {
		return port.ErrOptimisticLock
	}
	b.Quantity = quantity
	b.Version++
	b.UpdatedAt = at
	m.batches[id] = b
	return nil
}

func (m *mockStore) CreateOrder(ctx context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *mockStore) GetOrder(ctx context.Context, id string, scope domain.Predicate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !scope.MatchesOrder(o) {
		return nil, port.ErrNotFound
	}
	return &o, nil
}

func (m *mockStore) ListOrders(ctx context.Context, scope domain.Predicate, page domain.Page) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var visible []domain.Order
	for _, o := range m.orders {
		if scope.MatchesOrder(o) {
			visible = append(visible, o)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].CreatedAt.After(visible[j].CreatedAt) })
	total := len(visible)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return visible[page.Offset:end], total, nil
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, id string, expected, next domain.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != expected {
		return port.ErrOptimisticLock
	}
	o.Status = next
	o.Version++
	o.UpdatedAt = at
	m.orders[id] = o
	return nil
}

func (m *mockStore) SumDemand(ctx context.Context, medicineID string, from, to time.Time) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, n := 0, 0
	for _, o := range m.orders {
		if o.MedicineID == medicineID && o.Status != domain.OrderStatusCancelled &&
			!o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			qty += o.Quantity
			n++
		}
	}
	return qty, n, nil
}

func (m *mockStore) InsertAlert(ctx context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertAlert {
		return errors.New("alert table unavailable")
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *mockStore) ListAlerts(ctx context.Context, entityID string) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.EntityID == entityID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) alertCount(subjectID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.alerts {
		if a.SubjectID == subjectID {
			n++
		}
	}
	return n
}

// Mock AlertDeduplicator
type mockDedup struct {
	mu     sync.Mutex
	claims map[string]string
}

func newMockDedup() *mockDedup {
	return &mockDedup{claims: make(map[string]string)}
}

func (m *mockDedup) Claim(ctx context.Context, key domain.ClaimKey, alertID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[key.String()]; ok {
		return false, nil
	}
	m.claims[key.String()] = alertID
	return true, nil
}

func (m *mockDedup) Release(ctx context.Context, keys ...domain.ClaimKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.claims, k.String())
	}
	return nil
}

func (m *mockDedup) Unclaim(ctx context.Context, key domain.ClaimKey, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[key.String()] == alertID {
		delete(m.claims, key.String())
	}
	return nil
}

func (m *mockDedup) held(key domain.ClaimKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[key.String()]
	return ok
}

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	fail   bool
}

func (m *mockPublisher) Publish(ctx context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker unavailable")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) count(t domain.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// fixedClock returns a settable clock for services
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires the services against the mocks
type fixture struct {
	store     *mockStore
	dedup     *mockDedup
	events    *mockPublisher
	clock     *fixedClock
	alerts    *AlertService
	orders    *OrderService
	inventory *InventoryService
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMockStore(),
		dedup:  newMockDedup(),
		events: &mockPublisher{},
		clock:  &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.alerts = NewAlertService(f.store, f.dedup, f.events, nil)
	f.alerts.now = f.clock.Now
	f.orders = NewOrderService(f.store.repos(), f.alerts, f.events, nil)
	f.orders.now = f.clock.Now
	f.inventory = NewInventoryService(f.store.repos(), f.alerts, f.events, domain.DefaultStatusPolicy())
	f.inventory.now = f.clock.Now

	f.store.entities["H1"] = domain.Entity{ID: "H1", Kind: domain.EntityHospital, Name: "City Hospital"}
	f.store.entities["H2"] = domain.Entity{ID: "H2", Kind: domain.EntityHospital, Name: "County Hospital"}
	f.store.entities["R1"] = domain.Entity{ID: "R1", Kind: domain.EntityRetailer, Name: "Main Street Pharmacy"}
	f.store.entities["R2"] = domain.Entity{ID: "R2", Kind: domain.EntityRetailer, Name: "Harbor Pharmacy"}
	f.store.medicines["M1"] = domain.Medicine{ID: "M1", Name: "Amoxicillin"}
	f.store.medicines["M2"] = domain.Medicine{ID: "M2", Name: "Insulin"}
	return f
}

func (f *fixture) order(t testing.TB, from, to string, priority domain.Priority) *domain.Order {
	o, err := f.orders.Create(context.Background(), domain.CreateOrderRequest{
		FromEntityID: from,
		ToEntityID:   to,
		MedicineID:   "M1",
		Quantity:     10,
		Priority:     string(priority),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return o
}

func (f *fixture) batch(t testing.TB, entityID string, quantity, daysToExpiry int) *domain.Batch {
	expiry := domain.DateOf(f.clock.Now()).AddDays(daysToExpiry)
	b, err := f.inventory.AddBatch(context.Background(), domain.CreateBatchRequest{
		MedicineID:  "M1",
		EntityID:    entityID,
		BatchNumber: "LOT-1",
		Quantity:    &quantity,
		ExpiryDate:  &expiry,
	})
	if err != nil {
		t.Fatalf("add batch failed: %v", err)
	}
	return b
}
