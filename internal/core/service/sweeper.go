package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/pharma-supply/internal/port"
)

type batchReevaluator interface {
	Reevaluate(ctx context.Context, batchID string) error
}

// Sweeper periodically reclassifies every batch so that crossings into
// Critical or Expired caused only by the passage of time still alert.
type Sweeper struct {
	batches    port.BatchRepository
	inventory  batchReevaluator
	metrics    port.Metrics
	workers    int
	queueSize  int
	pageSize   int
	jobTimeout time.Duration
}

func NewSweeper(batches port.BatchRepository, inventory batchReevaluator, workers int, metrics port.Metrics) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	return &Sweeper{
		batches:    batches,
		inventory:  inventory,
		metrics:    metricsOrNop(metrics),
		workers:    workers,
		queueSize:  workers * 16,
		pageSize:   500,
		jobTimeout: 5 * time.Second,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := s.SweepOnce(ctx); err != nil {
			log.Printf("sweeper: pass aborted after %d batches: %v", n, err)
		} else {
			log.Printf("sweeper: re-evaluated %d batches", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce feeds every batch ID through the worker pool and waits for the
// workers to drain the queue. Returns the number of batches processed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	queue := make(chan string, s.queueSize)
	var processed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.workerLoop(ctx, id, queue, &processed)
		}(i)
	}

	err := s.enqueue(ctx, queue)
	close(queue)
	wg.Wait()

	n := int(processed.Load())
	s.metrics.BatchesSwept(n)
	return n, err
}

func (s *Sweeper) enqueue(ctx context.Context, queue chan<- string) error {
	after := ""
	for {
		ids, err := s.batches.ListBatchIDs(ctx, after, s.pageSize)
		if err != nil {
			return err
		}
		for _, id := range ids {
			select {
			case queue <- id:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if len(ids) < s.pageSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

func (s *Sweeper) workerLoop(ctx context.Context, id int, queue <-chan string, processed *atomic.Int32) {
	for batchID := range queue {
		jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
		if err := s.inventory.Reevaluate(jobCtx, batchID); err != nil {
			log.Printf("sweeper worker %d: failed to re-evaluate batch %s: %v", id, batchID, err)
		} else {
			processed.Add(1)
		}
		cancel()
	}
}
