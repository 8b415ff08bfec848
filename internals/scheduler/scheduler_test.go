package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcageai/ti-sync/internals/syncer"
)

type step struct {
	result *syncer.CycleResult
	err    error
}

type scriptedRunner struct {
	steps []step
	calls int
}

func (r *scriptedRunner) RunOneCycle(ctx context.Context) (*syncer.CycleResult, error) {
	i := r.calls
	if i >= len(r.steps) {
		i = len(r.steps) - 1
	}
	r.calls++
	return r.steps[i].result, r.steps[i].err
}

func failStep() step {
	return step{err: errors.New("fetch failed: source unreachable")}
}

func successStep(uploaded int) step {
	return step{result: &syncer.CycleResult{
		TotalIndicators:    uploaded,
		UploadedIndicators: uploaded,
		SuccessfulBatches:  1,
	}}
}

func emptyStep() step {
	return step{result: &syncer.CycleResult{}}
}

func TestCircuitBreakerTrips(t *testing.T) {
	runner := &scriptedRunner{steps: []step{failStep()}}
	sched := New(runner, time.Millisecond)

	state, err := sched.Run(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, MaxConsecutiveFailures, runner.calls)
	assert.Equal(t, MaxConsecutiveFailures, state.ConsecutiveFailures)
	assert.Equal(t, MaxConsecutiveFailures, state.CycleCount)
	assert.True(t, state.CircuitTripped)
}

func TestCycleSuccessResetsCounter(t *testing.T) {
	steps := []step{
		failStep(), failStep(), failStep(), failStep(),
		successStep(10),
		failStep(), failStep(), failStep(), failStep(), failStep(),
	}
	runner := &scriptedRunner{steps: steps}
	sched := New(runner, time.Millisecond)

	state, err := sched.Run(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 10, state.CycleCount, "4 failures, 1 success, then 5 failures to trip")
	assert.Equal(t, 10, state.TotalUploadedAllTime)
	require.NotNil(t, state.LastSuccess)
}

func TestEmptyCycleIsNeutral(t *testing.T) {
	// The empty fetch must neither reset the counter nor count toward the trip.
	steps := []step{
		failStep(), failStep(), failStep(), failStep(),
		emptyStep(),
		failStep(),
	}
	runner := &scriptedRunner{steps: steps}
	sched := New(runner, time.Millisecond)

	state, err := sched.Run(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 6, state.CycleCount)
	assert.Equal(t, MaxConsecutiveFailures, state.ConsecutiveFailures)
}

func TestAllBatchesFailedCountsAsFailure(t *testing.T) {
	runner := &scriptedRunner{steps: []step{
		{result: &syncer.CycleResult{TotalIndicators: 10, FailedBatches: 1}},
	}}
	sched := New(runner, time.Millisecond)

	state, err := sched.Run(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, MaxConsecutiveFailures, state.ConsecutiveFailures)
}

func TestCancellationInterruptsSleep(t *testing.T) {
	runner := &scriptedRunner{steps: []step{successStep(1)}}
	sched := New(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var state RunState
	var err error
	go func() {
		state, err = sched.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop promptly after cancellation mid-sleep")
	}
	require.NoError(t, err)
	assert.Equal(t, 1, state.CycleCount)
	assert.False(t, state.CircuitTripped)
}

func TestRunOnce(t *testing.T) {
	runner := &scriptedRunner{steps: []step{successStep(42)}}
	sched := New(runner, time.Hour)

	result, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result.UploadedIndicators)
	assert.Equal(t, 1, runner.calls)

	state := sched.State()
	assert.Equal(t, 1, state.CycleCount)
	assert.Equal(t, 42, state.TotalUploadedAllTime)
}

func TestRunOnceCycleError(t *testing.T) {
	runner := &scriptedRunner{steps: []step{failStep()}}
	sched := New(runner, time.Hour)

	result, err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, sched.State().ConsecutiveFailures, "scheduler records the cycle-failure")
}

func TestSnapshot(t *testing.T) {
	runner := &scriptedRunner{steps: []step{successStep(7)}}
	sched := New(runner, time.Hour)

	snapshot := sched.Snapshot()
	assert.False(t, snapshot.Running)
	assert.Nil(t, snapshot.LastCycle)

	_, err := sched.RunOnce(context.Background())
	require.NoError(t, err)

	snapshot = sched.Snapshot()
	assert.False(t, snapshot.Running)
	require.NotNil(t, snapshot.LastCycle)
	assert.Equal(t, 7, snapshot.LastCycle.UploadedIndicators)
	assert.Equal(t, 7, snapshot.State.TotalUploadedAllTime)
}
