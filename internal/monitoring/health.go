package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

const defaultProbeTimeout = 2 * time.Second

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results for a readiness evaluation.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a named dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// NewCheck builds a check. A nil probe always reports down.
func NewCheck(name string, probe func(ctx context.Context) error) Check {
	if probe == nil {
		probe = func(context.Context) error { return errors.New("probe not implemented") }
	}
	return Check{Name: name, Run: probe}
}

// HealthManager runs readiness probes concurrently, each bounded by a timeout.
type HealthManager struct {
	checks  []Check
	timeout time.Duration
}

// NewHealthManager constructs a manager; timeout <= 0 selects two seconds.
func NewHealthManager(timeout time.Duration, checks ...Check) *HealthManager {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	m := &HealthManager{timeout: timeout}
	for _, check := range checks {
		m.Register(check)
	}
	return m
}

// Register appends a probe. Unnamed probes are ignored.
func (m *HealthManager) Register(check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	m.checks = append(m.checks, check)
}

// Evaluate executes every probe. The report is down when any probe failed
// and degraded when the worst failure was a timeout.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ProbeResult, len(m.checks))
	p := pool.New().WithMaxGoroutines(4)
	for i, check := range m.checks {
		p.Go(func() {
			results[i] = m.run(ctx, check)
		})
	}
	p.Wait()

	report := HealthReport{Success: true, Status: StatusUp, Checks: results}
	for _, r := range results {
		switch r.Status {
		case StatusDown:
			report.Success = false
			report.Status = StatusDown
		case StatusDegraded:
			report.Success = false
			if report.Status != StatusDown {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (m *HealthManager) run(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{
				Component: check.Name,
				Status:    StatusDown,
				Details:   fmt.Sprint("panic: ", rec),
				Duration:  time.Since(start),
			}
		}
	}()

	return ResultFromError(check.Name, check.Run(probeCtx), time.Since(start))
}

// ResultFromError converts a probe error into a result. Deadline and
// cancellation errors count as degraded rather than down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
