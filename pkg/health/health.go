// Package health runs liveness and readiness probes and serves them over HTTP.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// Check is a single named probe. Check returns nil when healthy.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// NewCheckFunc adapts a plain function into a Check.
func NewCheckFunc(name string, fn func(context.Context) error) Check {
	return checkFunc{name: name, fn: fn}
}

// CheckResult is the outcome of one probe run.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// HealthStatus aggregates a probe run. Checks are ordered by name.
type HealthStatus struct {
	Healthy bool
	Checks  []CheckResult
}

// HealthChecker owns the liveness and readiness probe sets. A check only
// reports unhealthy after failureThreshold consecutive failures.
type HealthChecker struct {
	mu               sync.Mutex
	liveness         []Check
	readiness        []Check
	failures         map[string]int
	timeout          time.Duration
	failureThreshold int
	log              logger.Logger
}

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithTimeout bounds each individual check. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *HealthChecker) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger used for failing checks.
func WithLogger(l logger.Logger) Option {
	return func(h *HealthChecker) {
		if l != nil {
			h.log = l
		}
	}
}

// WithFailureThreshold sets how many consecutive failures mark a check
// unhealthy. Default 3; non-positive values are ignored.
func WithFailureThreshold(n int) Option {
	return func(h *HealthChecker) {
		if n > 0 {
			h.failureThreshold = n
		}
	}
}

// New creates a HealthChecker.
func New(opts ...Option) *HealthChecker {
	h := &HealthChecker{
		failures:         make(map[string]int),
		timeout:          5 * time.Second,
		failureThreshold: 3,
		log:              logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck registers a check that decides whether the process should be restarted.
func (h *HealthChecker) AddLivenessCheck(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, c)
}

// AddReadinessCheck registers a check that decides whether traffic should be routed here.
func (h *HealthChecker) AddReadinessCheck(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, c)
}

// CheckLiveness runs the liveness set.
func (h *HealthChecker) CheckLiveness(ctx context.Context) (*HealthStatus, error) {
	h.mu.Lock()
	checks := append([]Check(nil), h.liveness...)
	h.mu.Unlock()
	return h.run(ctx, checks)
}

// CheckReadiness runs the readiness set.
func (h *HealthChecker) CheckReadiness(ctx context.Context) (*HealthStatus, error) {
	h.mu.Lock()
	checks := append([]Check(nil), h.readiness...)
	h.mu.Unlock()
	return h.run(ctx, checks)
}

func (h *HealthChecker) run(ctx context.Context, checks []Check) (*HealthStatus, error) {
	status := &HealthStatus{Healthy: true, Checks: make([]CheckResult, len(checks))}

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			status.Checks[i] = h.probe(ctx, c)
		}(i, c)
	}
	wg.Wait()

	sort.SliceStable(status.Checks, func(i, j int) bool { return status.Checks[i].Name < status.Checks[j].Name })

	var failed []string
	for _, r := range status.Checks {
		if !r.Healthy {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		status.Healthy = false
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

func (h *HealthChecker) probe(parent context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(ctx)
	res := CheckResult{Name: c.Name(), Healthy: true, Latency: time.Since(start)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.failures[res.Name] = 0
		return res
	}

	h.failures[res.Name]++
	n := h.failures[res.Name]
	if n < h.failureThreshold {
		h.log.Debug("Health check failed below threshold",
			logger.StringField("check", res.Name),
			logger.ErrorField(err),
			logger.IntField("failures", n))
		return res
	}

	res.Healthy = false
	res.Error = err.Error()
	h.log.Warn("Health check failed",
		logger.StringField("check", res.Name),
		logger.ErrorField(err),
		logger.IntField("failures", n),
		logger.DurationField("latency", res.Latency))
	return res
}
