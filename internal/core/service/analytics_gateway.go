package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

const (
	opPredictDemand     = "predict_demand"
	opAnalyzeExpiryRisk = "analyze_expiry_risk"
)

// AnalyticsGateway shields callers from the analytics provider. Every call
// returns within the configured timeout, whether or not the provider honours
// its context, and never returns an error.
type AnalyticsGateway struct {
	oracle  port.AnalyticsOracle
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
	metrics port.Metrics
}

func NewAnalyticsGateway(oracle port.AnalyticsOracle, timeout time.Duration, failureThreshold int, cooldown time.Duration, metrics port.Metrics) *AnalyticsGateway {
	return &AnalyticsGateway{
		oracle:  oracle,
		timeout: timeout,
		breaker: newBreaker(failureThreshold, cooldown),
		metrics: metricsOrNop(metrics),
	}
}

func (g *AnalyticsGateway) PredictDemand(ctx context.Context, medicineID string) domain.ForecastResult {
	forecast, reason := call(ctx, g, opPredictDemand, func(ctx context.Context) (*domain.Forecast, error) {
		return g.oracle.PredictDemand(ctx, medicineID)
	})
	if forecast == nil {
		return domain.ForecastResult{Status: domain.AnalyticsUnavailable, Reason: reason}
	}
	return domain.ForecastResult{Status: domain.AnalyticsOK, Forecast: forecast}
}

func (g *AnalyticsGateway) AnalyzeExpiryRisk(ctx context.Context, entityID string) domain.RiskResult {
	report, reason := call(ctx, g, opAnalyzeExpiryRisk, func(ctx context.Context) (*domain.RiskReport, error) {
		return g.oracle.AnalyzeExpiryRisk(ctx, entityID)
	})
	if report == nil {
		return domain.RiskResult{Status: domain.AnalyticsUnavailable, Reason: reason}
	}
	return domain.RiskResult{Status: domain.AnalyticsOK, Report: report}
}

type callResult[T any] struct {
	value *T
	err   error
}

var (
	errCallerGone      = errors.New("caller cancelled")
	errProviderTimeout = errors.New("provider timed out")
)

// call runs fn on its own goroutine behind the breaker and waits for it, the
// deadline, or the caller, whichever comes first. A nil value comes with a
// reason.
func call[T any](ctx context.Context, g *AnalyticsGateway, op string, fn func(context.Context) (*T, error)) (*T, string) {
	if g.oracle == nil {
		g.metrics.AnalyticsCall(op, domain.AnalyticsUnavailable)
		return nil, "analytics provider not configured"
	}

	out, err := g.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		// buffered so a late provider never blocks
		done := make(chan callResult[T], 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- callResult[T]{err: fmt.Errorf("provider panic: %v", r)}
				}
			}()
			v, err := fn(callCtx)
			done <- callResult[T]{value: v, err: err}
		}()

		select {
		case res := <-done:
			if res.err == nil && res.value == nil {
				res.err = errors.New("empty provider response")
			}
			if res.err != nil && ctx.Err() != nil {
				return nil, errCallerGone
			}
			if res.err != nil {
				return nil, res.err
			}
			return res.value, nil
		case <-callCtx.Done():
			if ctx.Err() != nil {
				return nil, errCallerGone
			}
			return nil, errProviderTimeout
		}
	})

	if err != nil {
		g.metrics.AnalyticsCall(op, domain.AnalyticsUnavailable)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, "analytics provider circuit open"
		case errors.Is(err, errCallerGone):
			return nil, "request cancelled"
		case errors.Is(err, errProviderTimeout):
			log.Printf("Analytics %s timed out after %s", op, g.timeout)
			return nil, "analytics provider timed out"
		}
		log.Printf("Analytics %s failed: %v", op, err)
		return nil, "analytics provider error"
	}
	g.metrics.AnalyticsCall(op, domain.AnalyticsOK)
	return out.(*T), ""
}

// newBreaker opens after threshold consecutive failures and lets a single
// trial call through once cooldown has elapsed. A caller that goes away is
// not counted against the provider.
func newBreaker(threshold int, cooldown time.Duration) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "analytics",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Breaker %s: %s -> %s", name, from, to)
		},
	})
}
