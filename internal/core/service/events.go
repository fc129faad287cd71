package service

import (
	"context"
	"log"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// publish emits an event without failing the caller; the state change it
// describes has already been committed.
func publish(ctx context.Context, events port.EventPublisher, aggregateID string, eventType domain.EventType, data any) {
	if events == nil {
		return
	}
	event, err := domain.NewEvent(aggregateID, eventType, data)
	if err != nil {
		log.Printf("Failed to build %s event for %s: %v", eventType, aggregateID, err)
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event for %s: %v", eventType, aggregateID, err)
	}
}

type nopMetrics struct{}

func (nopMetrics) OrderTransition(domain.OrderStatus, domain.OrderStatus, string) {}
func (nopMetrics) AlertRaised(domain.AlertType)                                   {}
func (nopMetrics) AnalyticsCall(string, domain.AnalyticsStatus)                   {}
func (nopMetrics) BatchesSwept(int)                                               {}

func metricsOrNop(m port.Metrics) port.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
