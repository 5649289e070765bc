package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every component failed.
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
	ComponentEmbedding = "embedding"
	ComponentSynthesis = "synthesis"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedCheck struct {
	name  string
	check func(ctx context.Context) error
}

// Option configures the Service.
type Option func(*Service)

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.checks = append(s.checks, namedCheck{ComponentEmbedding, c.HealthCheck})
		}
	}
}

// WithSynthesis adds the synthesis provider check.
func WithSynthesis(c Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.checks = append(s.checks, namedCheck{ComponentSynthesis, c.HealthCheck})
		}
	}
}

// WithTimeout overrides the per-check timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Service coordinates health checks.
type Service struct {
	checks  []namedCheck
	timeout time.Duration
}

// New creates a Service. The database check is always present.
func New(db DBPinger, opts ...Option) *Service {
	s := &Service{
		checks:  []namedCheck{{ComponentDatabase, db.Ping}},
		timeout: DefaultCheckTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	failed := 0

	for _, c := range s.checks {
		if err := s.run(ctx, c); err != nil {
			checks[c.name] = CheckError
			failed++
		} else {
			checks[c.name] = CheckOK
		}
	}

	status := Healthy
	switch {
	case failed == len(s.checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, c namedCheck) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return c.check(ctx)
}
