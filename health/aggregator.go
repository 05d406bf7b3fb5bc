package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregator runs every registered Checker concurrently under one timeout.
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Aggregator{timeout: timeout}
}

func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checkers...)
}

// Check never fails; failing dependencies show up in the result.
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = checkOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		Status:    StatusHealthy,
		Timestamp: start.UTC(),
		Checks:    make(map[string]CheckResult, len(results)),
	}
	for _, r := range results {
		resp.Checks[r.Name] = r
		if r.Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
		}
	}
	resp.Duration = time.Since(start)
	return resp
}

func checkOne(ctx context.Context, c Checker) CheckResult {
	start := time.Now()
	r := CheckResult{Name: c.Name(), Status: StatusHealthy}
	if err := c.Check(ctx); err != nil {
		r.Status = StatusUnhealthy
		r.Error = err.Error()
	}
	r.Duration = time.Since(start)
	return r
}
