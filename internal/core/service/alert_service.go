package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// urgentClaimStatus is the claim status used for urgent order alerts.
const urgentClaimStatus = "Urgent"

type AlertService struct {
	repo    port.AlertRepository
	dedup   port.AlertDeduplicator
	events  port.EventPublisher
	metrics port.Metrics
	now     func() time.Time
}

func NewAlertService(repo port.AlertRepository, dedup port.AlertDeduplicator, events port.EventPublisher, metrics port.Metrics) *AlertService {
	return &AlertService{
		repo:    repo,
		dedup:   dedup,
		events:  events,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
	}
}

// EvaluateBatch raises an alert when b is Critical or Expired and no alert is
// open for that state. A batch in a non-alerting state releases its claims so
// that a later relapse alerts again. Returns the alert raised, if any.
func (s *AlertService) EvaluateBatch(ctx context.Context, b domain.Batch) (*domain.Alert, error) {
	if !b.Status.Alerting() {
		keys := []domain.ClaimKey{
			{SubjectID: b.ID, Status: string(domain.BatchCritical)},
			{SubjectID: b.ID, Status: string(domain.BatchExpired)},
		}
		if err := s.dedup.Release(ctx, keys...); err != nil {
			return nil, domain.Internal("unable to release alert claims", err)
		}
		return nil, nil
	}

	alertType := domain.AlertWarning
	message := fmt.Sprintf("Batch %s is critical: expires on %s with %d units remaining", b.BatchNumber, b.ExpiryDate, b.Quantity)
	if b.Status == domain.BatchExpired {
		alertType = domain.AlertCritical
		message = fmt.Sprintf("Batch %s expired on %s with %d units remaining", b.BatchNumber, b.ExpiryDate, b.Quantity)
	}

	return s.raise(ctx, domain.ClaimKey{SubjectID: b.ID, Status: string(b.Status)}, domain.Alert{
		Type:      alertType,
		Message:   message,
		EntityID:  b.EntityID,
		SubjectID: b.ID,
	})
}

// OrderCreated alerts the fulfilling entity about an urgent order.
func (s *AlertService) OrderCreated(ctx context.Context, o domain.Order) (*domain.Alert, error) {
	if o.Priority != domain.PriorityUrgent {
		return nil, nil
	}
	return s.raise(ctx, domain.ClaimKey{SubjectID: o.ID, Status: urgentClaimStatus}, domain.Alert{
		Type:      domain.AlertCritical,
		Message:   fmt.Sprintf("Urgent order %s: %d units requested by %s", o.ID, o.Quantity, o.FromEntityID),
		EntityID:  o.ToEntityID,
		SubjectID: o.ID,
	})
}

func (s *AlertService) raise(ctx context.Context, key domain.ClaimKey, alert domain.Alert) (*domain.Alert, error) {
	alert.ID = uuid.New().String()
	alert.CreatedAt = s.now().UTC()

	claimed, err := s.dedup.Claim(ctx, key, alert.ID)
	if err != nil {
		return nil, domain.Internal("unable to claim alert", err)
	}
	if !claimed {
		return nil, nil
	}

	if err := s.repo.InsertAlert(ctx, alert); err != nil {
		// Rollback: release the claim so the next evaluation retries
		if rerr := s.dedup.Unclaim(ctx, key, alert.ID); rerr != nil {
			log.Printf("Failed to release alert claim %s: %v", key, rerr)
		}
		return nil, storageError(err, "alert")
	}

	s.metrics.AlertRaised(alert.Type)
	publish(ctx, s.events, alert.ID, domain.EventAlertCreated, alert)
	return &alert, nil
}

// Create stores a manual alert. Manual alerts are not de-duplicated.
func (s *AlertService) Create(ctx context.Context, req domain.CreateAlertRequest) (*domain.Alert, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	alert := domain.Alert{
		ID:        uuid.New().String(),
		Type:      domain.AlertType(req.Type),
		Message:   req.Message,
		EntityID:  req.EntityID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertAlert(ctx, alert); err != nil {
		return nil, storageError(err, "alert")
	}
	s.metrics.AlertRaised(alert.Type)
	publish(ctx, s.events, alert.ID, domain.EventAlertCreated, alert)
	return &alert, nil
}

// List returns the alerts addressed to entityID, newest first.
func (s *AlertService) List(ctx context.Context, entityID string) ([]domain.Alert, error) {
	if entityID == "" {
		return nil, domain.Validationf("entityId is required")
	}
	alerts, err := s.repo.ListAlerts(ctx, entityID)
	if err != nil {
		return nil, storageError(err, "alerts")
	}
	return alerts, nil
}
