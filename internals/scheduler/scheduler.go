package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	config "github.com/steelcageai/ti-sync/internals/configuration"
	"github.com/steelcageai/ti-sync/internals/syncer"
)

// MaxConsecutiveFailures is the circuit breaker threshold: once this many cycles
// fail in a row the continuous loop terminates rather than masking a persistent
// outage behind an infinite retry loop.
const MaxConsecutiveFailures = 5

// ErrCircuitOpen is returned by Run when the circuit breaker trips
var ErrCircuitOpen = errors.New("circuit breaker tripped: too many consecutive cycle failures")

var (
	_metricCycles = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "cycles_total",
		Help:        "number of executed sync cycles by outcome",
	}, []string{"outcome"})
	_metricConsecutiveFailures = kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "consecutive_failures",
		Help:        "current consecutive cycle failure count",
	}, []string{})
	_metricCircuitTripped = kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
		Namespace:   config.MetricNamespace,
		ConstLabels: config.MetricPrometheusLabels,
		Name:        "circuit_tripped",
		Help:        "1 when the circuit breaker has tripped and the loop stopped",
	}, []string{})
)

// CycleRunner runs one complete fetch-partition-upload sequence
type CycleRunner interface {
	RunOneCycle(ctx context.Context) (*syncer.CycleResult, error)
}

// RunState tracks the continuous-mode run statistics. It is owned and mutated
// exclusively by the Scheduler and lives for the process lifetime.
type RunState struct {
	CycleCount           int        `json:"cycleCount"`
	ConsecutiveFailures  int        `json:"consecutiveFailures"`
	LastSuccess          *time.Time `json:"lastSuccess,omitempty"`
	TotalUploadedAllTime int        `json:"totalUploadedAllTime"`
	CircuitTripped       bool       `json:"circuitTripped"`
}

// Snapshot is a point-in-time read-only view of the scheduler, safe to expose
// on the ops API while the loop is running
type Snapshot struct {
	Running   bool                `json:"running"`
	State     RunState            `json:"state"`
	LastCycle *syncer.CycleResult `json:"lastCycle,omitempty"`
}

type cycleOutcome int

const (
	cycleFailure cycleOutcome = iota
	cycleSuccess
	cycleNeutral
)

// Scheduler runs the orchestrator once or repeatedly on an interval, tracks the
// consecutive-failure count and trips the circuit breaker
type Scheduler struct {
	runner      CycleRunner
	interval    time.Duration
	maxFailures int

	mu        sync.Mutex
	running   bool
	state     RunState
	lastCycle *syncer.CycleResult
}

// New returns a pointer to a new Scheduler instance
func New(runner CycleRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:      runner,
		interval:    interval,
		maxFailures: MaxConsecutiveFailures,
	}
}

// Snapshot returns a copy of the current run state and last cycle result
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := Snapshot{Running: s.running, State: s.state}
	if s.lastCycle != nil {
		lastCycle := *s.lastCycle
		snapshot.LastCycle = &lastCycle
	}
	return snapshot
}

// RunOnce executes exactly one sync cycle and returns its result
func (s *Scheduler) RunOnce(ctx context.Context) (*syncer.CycleResult, error) {
	s.setRunning(true)
	defer s.setRunning(false)

	result, err := s.runCycle(ctx)
	return result, err
}

// Run executes sync cycles on the configured interval until the context is
// cancelled or the circuit breaker trips. The inter-cycle sleep is interrupted
// promptly by cancellation. The final RunState is returned in both cases;
// a tripped breaker is reported as ErrCircuitOpen.
func (s *Scheduler) Run(ctx context.Context) (RunState, error) {
	s.setRunning(true)
	defer s.setRunning(false)

	zap.L().Info("Starting continuous sync loop",
		zap.Duration("interval", s.interval),
		zap.Int("maxConsecutiveFailures", s.maxFailures),
	)

	for {
		if err := ctx.Err(); err != nil {
			return s.State(), nil
		}
		_, _ = s.runCycle(ctx)

		s.mu.Lock()
		tripped := s.state.ConsecutiveFailures >= s.maxFailures
		s.state.CircuitTripped = tripped
		state := s.state
		s.mu.Unlock()

		if tripped {
			_metricCircuitTripped.Set(1)
			zap.L().Error("Circuit breaker tripped, stopping sync loop",
				zap.Int("consecutiveFailures", state.ConsecutiveFailures),
				zap.Int("cycleCount", state.CycleCount),
			)
			return state, ErrCircuitOpen
		}

		select {
		case <-ctx.Done():
			zap.L().Info("Sync loop cancelled", zap.Int("cycleCount", state.CycleCount))
			return state, nil
		case <-time.After(s.interval):
		}
	}
}

// State returns a copy of the current RunState
func (s *Scheduler) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

// runCycle executes one cycle and applies its outcome to the run state:
// cycle-success resets the consecutive-failure count, cycle-failure increments
// it, and an empty fetch is neutral for circuit-breaker purposes.
func (s *Scheduler) runCycle(ctx context.Context) (*syncer.CycleResult, error) {
	result, err := s.runner.RunOneCycle(ctx)
	outcome := classify(result, err)

	s.mu.Lock()
	s.state.CycleCount++
	s.lastCycle = result
	switch outcome {
	case cycleSuccess:
		now := time.Now().UTC()
		s.state.ConsecutiveFailures = 0
		s.state.LastSuccess = &now
		s.state.TotalUploadedAllTime += result.UploadedIndicators
		_metricCycles.With("outcome", "success").Add(1)
	case cycleFailure:
		s.state.ConsecutiveFailures++
		_metricCycles.With("outcome", "failure").Add(1)
	case cycleNeutral:
		_metricCycles.With("outcome", "neutral").Add(1)
	}
	_metricConsecutiveFailures.Set(float64(s.state.ConsecutiveFailures))
	s.mu.Unlock()

	return result, err
}

// classify maps a cycle result to its circuit-breaker outcome.
// A cycle that uploaded at least one batch is a success, an empty fetch is
// neutral, everything else (cycle-level error or all batches failed) is a failure.
func classify(result *syncer.CycleResult, err error) cycleOutcome {
	if err != nil || result == nil {
		return cycleFailure
	}
	if result.TotalIndicators == 0 {
		return cycleNeutral
	}
	if result.SuccessfulBatches > 0 {
		return cycleSuccess
	}
	return cycleFailure
}
