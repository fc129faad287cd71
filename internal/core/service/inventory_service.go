package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// maxAdjustAttempts bounds the compare-and-swap retries of a quantity adjustment.
const maxAdjustAttempts = 3

type InventoryService struct {
	entities  port.EntityRepository
	medicines port.MedicineRepository
	batches   port.BatchRepository
	alerts    *AlertService
	events    port.EventPublisher
	policy    domain.StatusPolicy
	now       func() time.Time
}

func NewInventoryService(repos Repositories, alerts *AlertService, events port.EventPublisher, policy domain.StatusPolicy) *InventoryService {
	return &InventoryService{
		entities:  repos.Entities,
		medicines: repos.Medicines,
		batches:   repos.Batches,
		alerts:    alerts,
		events:    events,
		policy:    policy,
		now:       time.Now,
	}
}

// ResolveScope binds a role to its entity, checking that the entity exists
// and is of the kind the role acts for.
func (s *InventoryService) ResolveScope(ctx context.Context, role, entityID string) (domain.Scope, error) {
	scope, err := domain.NewScope(role, entityID)
	if err != nil {
		return domain.Scope{}, err
	}
	kind, ok := scope.Role.EntityKind()
	if !ok {
		return scope, nil
	}
	entity, err := s.entities.GetEntity(ctx, scope.EntityID)
	if err != nil {
		return domain.Scope{}, storageError(err, "entity "+scope.EntityID)
	}
	if entity.Kind != kind {
		return domain.Scope{}, domain.Unauthorizedf("entity %s is not a %s", entity.ID, kind)
	}
	return scope, nil
}

func (s *InventoryService) CreateEntity(ctx context.Context, req domain.CreateEntityRequest) (*domain.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kind, _ := domain.ParseEntityKind(req.Kind)
	entity := domain.Entity{
		ID:        uuid.New().String(),
		Kind:      kind,
		Name:      strings.TrimSpace(req.Name),
		Location:  req.Location,
		CreatedAt: s.now().UTC(),
	}
	if err := s.entities.CreateEntity(ctx, entity); err != nil {
		return nil, storageError(err, "entity")
	}
	return &entity, nil
}

func (s *InventoryService) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	entities, err := s.entities.ListEntities(ctx)
	if err != nil {
		return nil, storageError(err, "entities")
	}
	return entities, nil
}

func (s *InventoryService) CreateMedicine(ctx context.Context, req domain.CreateMedicineRequest) (*domain.Medicine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	medicine := domain.Medicine{
		ID:                    uuid.New().String(),
		Name:                  strings.TrimSpace(req.Name),
		GenericName:           req.GenericName,
		Category:              req.Category,
		Type:                  domain.MedicineType(req.Type),
		Manufacturer:          req.Manufacturer,
		Description:           req.Description,
		RequiresRefrigeration: req.RequiresRefrigeration,
		CreatedAt:             s.now().UTC(),
	}
	if err := s.medicines.CreateMedicine(ctx, medicine); err != nil {
		return nil, storageError(err, "medicine")
	}
	return &medicine, nil
}

// ListMedicines returns every medicine with the batches visible under scope.
// Batch statuses are computed at read time.
func (s *InventoryService) ListMedicines(ctx context.Context, scope domain.Scope) ([]domain.MedicineStock, error) {
	medicines, err := s.medicines.ListMedicines(ctx)
	if err != nil {
		return nil, storageError(err, "medicines")
	}
	batches, err := s.batches.ListBatches(ctx, scope.Batches())
	if err != nil {
		return nil, storageError(err, "batches")
	}

	now := s.now()
	byMedicine := make(map[string][]domain.Batch, len(medicines))
	for _, b := range batches {
		s.policy.Refresh(&b, now)
		byMedicine[b.MedicineID] = append(byMedicine[b.MedicineID], b)
	}

	stock := make([]domain.MedicineStock, 0, len(medicines))
	for _, m := range medicines {
		list := byMedicine[m.ID]
		if list == nil {
			list = []domain.Batch{}
		}
		// earliest expiry first
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].ExpiryDate.Before(list[j].ExpiryDate.Time)
		})
		stock = append(stock, domain.MedicineStock{Medicine: m, Batches: list})
	}
	return stock, nil
}

// AddBatch registers a received batch and alerts if it arrives Critical or Expired.
func (s *InventoryService) AddBatch(ctx context.Context, req domain.CreateBatchRequest) (*domain.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.medicines.GetMedicine(ctx, req.MedicineID); err != nil {
		return nil, storageError(err, "medicine "+req.MedicineID)
	}
	if _, err := s.entities.GetEntity(ctx, req.EntityID); err != nil {
		return nil, storageError(err, "entity "+req.EntityID)
	}

	now := s.now()
	batch := domain.Batch{
		ID:          uuid.New().String(),
		MedicineID:  req.MedicineID,
		EntityID:    req.EntityID,
		BatchNumber: req.BatchNumber,
		Quantity:    *req.Quantity,
		ExpiryDate:  *req.ExpiryDate,
		Location:    req.Location,
		UnitCost:    req.UnitCost,
		Version:     1,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	s.policy.Refresh(&batch, now)

	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return nil, storageError(err, "batch")
	}

	s.evaluate(ctx, batch)
	publish(ctx, s.events, batch.ID, domain.EventBatchReceived, batch)
	return &batch, nil
}

// AdjustBatch applies a receipt (positive delta) or consumption (negative
// delta) to a batch visible under scope.
func (s *InventoryService) AdjustBatch(ctx context.Context, scope domain.Scope, batchID string, req domain.AdjustBatchRequest) (*domain.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAdjustAttempts; attempt++ {
		batch, err := s.batches.GetBatch(ctx, batchID, scope.Batches())
		if err != nil {
			return nil, storageError(err, "batch "+batchID)
		}
		quantity := batch.Quantity + req.Delta
		if quantity < 0 {
			return nil, domain.Validationf("batch %s holds %d units, cannot remove %d", batchID, batch.Quantity, -req.Delta)
		}

		now := s.now()
		err = s.batches.UpdateBatchQuantity(ctx, batchID, quantity, batch.Version, now.UTC())
		if errors.Is(err, port.ErrOptimisticLock) {
			continue
		}
		if err != nil {
			return nil, storageError(err, "batch "+batchID)
		}

		batch.Quantity = quantity
		batch.Version++
		batch.UpdatedAt = now.UTC()
		s.policy.Refresh(batch, now)

		s.evaluate(ctx, *batch)
		publish(ctx, s.events, batch.ID, domain.EventBatchAdjusted, domain.BatchAdjusted{
			BatchID:  batch.ID,
			Delta:    req.Delta,
			Quantity: batch.Quantity,
			Status:   batch.Status,
			Reason:   req.Reason,
		})
		return batch, nil
	}
	return nil, domain.Conflictf("batch %s is being modified concurrently, retry later", batchID)
}

// Reevaluate reclassifies a batch against the current time and raises any
// alert the passage of time has made due.
func (s *InventoryService) Reevaluate(ctx context.Context, batchID string) error {
	batch, err := s.batches.GetBatch(ctx, batchID, domain.Predicate{})
	if err != nil {
		return storageError(err, "batch "+batchID)
	}
	s.policy.Refresh(batch, s.now())
	if s.alerts == nil {
		return nil
	}
	_, err = s.alerts.EvaluateBatch(ctx, *batch)
	return err
}

// evaluate runs alert generation after a committed batch change. A failure
// leaves no claim behind, so the next sweep retries it.
func (s *InventoryService) evaluate(ctx context.Context, b domain.Batch) {
	if s.alerts == nil {
		return
	}
	if _, err := s.alerts.EvaluateBatch(ctx, b); err != nil {
		log.Printf("Failed to evaluate alerts for batch %s: %v", b.ID, err)
	}
}
