package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist or is
	// outside the supplied scope predicate.
	ErrNotFound = errors.New("record not found")

	// ErrOptimisticLock is returned when a compare-and-swap update matched no row.
	ErrOptimisticLock = errors.New("optimistic lock conflict")

	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("duplicate record")
)

type EntityRepository interface {
	// CreateEntity persists a new hospital or retailer
	CreateEntity(ctx context.Context, entity domain.Entity) error

	// GetEntity retrieves an entity by ID, ErrNotFound if missing
	GetEntity(ctx context.Context, id string) (*domain.Entity, error)

	ListEntities(ctx context.Context) ([]domain.Entity, error)
}

type MedicineRepository interface {
	CreateMedicine(ctx context.Context, medicine domain.Medicine) error

	// GetMedicine retrieves a medicine by ID, ErrNotFound if missing
	GetMedicine(ctx context.Context, id string) (*domain.Medicine, error)

	ListMedicines(ctx context.Context) ([]domain.Medicine, error)
}

type BatchRepository interface {
	// CreateBatch persists a new batch with version 1. Batch numbers are
	// unique per medicine and holder, ErrDuplicate otherwise
	CreateBatch(ctx context.Context, batch domain.Batch) error

	// GetBatch retrieves a batch visible under scope, ErrNotFound otherwise
	GetBatch(ctx context.Context, id string, scope domain.Predicate) (*domain.Batch, error)

	// ListBatches returns every batch visible under scope
	ListBatches(ctx context.Context, scope domain.Predicate) ([]domain.Batch, error)

	// ListBatchIDs pages through all batch IDs in ascending order after afterID
	ListBatchIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	// UpdateBatchQuantity sets quantity if the stored version still equals
	// version, bumping it. Returns ErrOptimisticLock otherwise.
	UpdateBatchQuantity(ctx context.Context, id string, quantity, version int, at time.Time) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order visible under scope, ErrNotFound otherwise
	GetOrder(ctx context.Context, id string, scope domain.Predicate) (*domain.Order, error)

	// ListOrders returns one page of orders visible under scope, newest first,
	// together with the total number visible under the same scope
	ListOrders(ctx context.Context, scope domain.Predicate, page domain.Page) ([]domain.Order, int, error)

	// UpdateOrderStatus moves an order from expected to next only if it is
	// still in expected. Returns ErrOptimisticLock otherwise.
	UpdateOrderStatus(ctx context.Context, id string, expected, next domain.OrderStatus, at time.Time) error

	// SumDemand totals the quantity of non-cancelled orders for a medicine
	// created in [from, to), with the number of orders counted
	SumDemand(ctx context.Context, medicineID string, from, to time.Time) (quantity int, orders int, err error)
}

type AlertRepository interface {
	InsertAlert(ctx context.Context, alert domain.Alert) error

	// ListAlerts returns alerts addressed to entityID, newest first
	ListAlerts(ctx context.Context, entityID string) ([]domain.Alert, error)
}
