package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// Outcomes recorded for every transition attempt.
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
)

type OrderService struct {
	orders    port.OrderRepository
	entities  port.EntityRepository
	medicines port.MedicineRepository
	alerts    *AlertService
	events    port.EventPublisher
	metrics   port.Metrics
	now       func() time.Time
}

func NewOrderService(repos Repositories, alerts *AlertService, events port.EventPublisher, metrics port.Metrics) *OrderService {
	return &OrderService{
		orders:    repos.Orders,
		entities:  repos.Entities,
		medicines: repos.Medicines,
		alerts:    alerts,
		events:    events,
		metrics:   metricsOrNop(metrics),
		now:       time.Now,
	}
}

// Create places a new order in status New. Urgent orders alert the
// fulfilling entity.
func (s *OrderService) Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	for _, id := range []string{req.FromEntityID, req.ToEntityID} {
		if _, err := s.entities.GetEntity(ctx, id); err != nil {
			return nil, storageError(err, "entity "+id)
		}
	}
	if _, err := s.medicines.GetMedicine(ctx, req.MedicineID); err != nil {
		return nil, storageError(err, "medicine "+req.MedicineID)
	}

	priority := domain.PriorityNormal
	if req.Priority != "" {
		priority, _ = domain.ParsePriority(req.Priority)
	}

	now := s.now().UTC()
	order := domain.Order{
		ID:           uuid.New().String(),
		FromEntityID: req.FromEntityID,
		ToEntityID:   req.ToEntityID,
		MedicineID:   req.MedicineID,
		Quantity:     req.Quantity,
		Priority:     priority,
		Status:       domain.OrderStatusNew,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, storageError(err, "order")
	}

	if s.alerts != nil {
		if _, err := s.alerts.OrderCreated(ctx, order); err != nil {
			log.Printf("Failed to raise urgent alert for order %s: %v", order.ID, err)
		}
	}
	publish(ctx, s.events, order.ID, domain.EventOrderCreated, order)
	return &order, nil
}

// Transition moves an order to target on behalf of actingEntityID. When
// expected is set the caller asserts the status it last observed.
func (s *OrderService) Transition(ctx context.Context, orderID string, target domain.OrderStatus, actingEntityID string, expected domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID, domain.Predicate{})
	if err != nil {
		return nil, storageError(err, "order "+orderID)
	}
	observed := order.Status

	// outsiders learn nothing about the order's state
	if !order.HasParty(actingEntityID) {
		s.metrics.OrderTransition(observed, target, outcomeRejected)
		return nil, domain.Unauthorizedf("entity %s is not a party to order %s", actingEntityID, orderID)
	}
	if expected != "" && expected != observed {
		s.metrics.OrderTransition(observed, target, outcomeConflict)
		return nil, domain.Conflictf("order %s is %s, expected %s", orderID, observed, expected)
	}
	if observed == target && domain.Reachable(target) {
		// lost a race to the same transition
		s.metrics.OrderTransition(observed, target, outcomeConflict)
		return nil, domain.Conflictf("order %s is already %s", orderID, target)
	}
	if err := order.CheckTransition(target, actingEntityID); err != nil {
		s.metrics.OrderTransition(observed, target, outcomeRejected)
		return nil, err
	}

	now := s.now().UTC()
	if err := s.orders.UpdateOrderStatus(ctx, orderID, observed, target, now); err != nil {
		if errors.Is(err, port.ErrOptimisticLock) {
			s.metrics.OrderTransition(observed, target, outcomeConflict)
			return nil, domain.Conflictf("order %s changed while moving to %s", orderID, target)
		}
		return nil, storageError(err, "order "+orderID)
	}

	order.Status = target
	order.Version++
	order.UpdatedAt = now
	s.metrics.OrderTransition(observed, target, outcomeApplied)
	publish(ctx, s.events, order.ID, domain.EventOrderStatusChanged, domain.OrderStatusChanged{
		OrderID:        order.ID,
		From:           observed,
		To:             target,
		ActingEntityID: actingEntityID,
	})
	return order, nil
}

// Get returns an order visible under scope.
func (s *OrderService) Get(ctx context.Context, scope domain.Scope, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID, scope.Orders())
	if err != nil {
		return nil, storageError(err, "order "+orderID)
	}
	return order, nil
}

// List returns one page of the orders visible under scope.
func (s *OrderService) List(ctx context.Context, scope domain.Scope, page domain.Page) (*domain.OrderPage, error) {
	page = page.Normalize()
	items, total, err := s.orders.ListOrders(ctx, scope.Orders(), page)
	if err != nil {
		return nil, storageError(err, "orders")
	}
	if items == nil {
		items = []domain.Order{}
	}
	return &domain.OrderPage{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}
