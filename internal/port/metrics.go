package port

import "github.com/rl1809/pharma-supply/internal/core/domain"

type Metrics interface {
	OrderTransition(from, to domain.OrderStatus, outcome string)
	AlertRaised(alertType domain.AlertType)
	AnalyticsCall(operation string, status domain.AnalyticsStatus)
	BatchesSwept(count int)
}
