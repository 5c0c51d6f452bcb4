package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentSearch    = "search"
	ComponentEmbedding = "embedding"
	ComponentLLM       = "llm"
	ComponentReranker  = "reranker"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type check struct {
	name string
	fn   func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	checks  []check
	timeout time.Duration
}

// Option registers an optional component.
type Option func(*Service)

// WithSearch adds the external vector backend (postgres, qdrant).
func WithSearch(p DBPinger) Option {
	return func(s *Service) { s.add(ComponentSearch, p.Ping) }
}

// WithEmbedding adds the embedding provider.
func WithEmbedding(c Checker) Option {
	return func(s *Service) { s.add(ComponentEmbedding, c.HealthCheck) }
}

// WithLLM adds the language model provider.
func WithLLM(c Checker) Option {
	return func(s *Service) { s.add(ComponentLLM, c.HealthCheck) }
}

// WithReranker adds the reranker service.
func WithReranker(c Checker) Option {
	return func(s *Service) { s.add(ComponentReranker, c.HealthCheck) }
}

// WithTimeout bounds each individual check.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service. The database is always checked.
func New(db DBPinger, opts ...Option) *Service {
	s := &Service{timeout: defaultCheckTimeout}
	s.add(ComponentDatabase, db.Ping)
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) add(name string, fn func(ctx context.Context) error) {
	s.checks = append(s.checks, check{name: name, fn: fn})
}

// Check runs all component checks concurrently. Status is Unhealthy when the
// database is down, Degraded when any other component fails.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.fn(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[c.name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
