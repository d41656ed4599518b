package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/store"
	"github.com/skydelay/cascade-engine/internal/utils"
)

type fakeSource struct {
	mu      sync.Mutex
	records []models.FlightRecord
	err     error
	calls   int
}

func (f *fakeSource) Records(context.Context) ([]models.FlightRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.records, f.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeSink struct {
	published int
	err       error
}

func (f *fakeSink) Publish(context.Context, *models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published++
	return nil
}

func (f *fakeSink) Close() error { return nil }

func sampleRecords() []models.FlightRecord {
	dep, arr := 600, 720
	var out []models.FlightRecord
	for d := 0; d < 3; d++ {
		out = append(out, models.FlightRecord{
			FlightDate:         time.Date(2024, 6, 1+d, 0, 0, 0, 0, time.UTC),
			Carrier:            "AA",
			Origin:             "ORD",
			Dest:               "ATL",
			ScheduledDeparture: &dep,
			ScheduledArrival:   &arr,
			DepDelayMinutes:    float64(10 * d),
		})
	}
	out = append(out, models.FlightRecord{FlightDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Origin: "ORD", Dest: "DEN"})
	return out
}

func TestRunnerPublishes(t *testing.T) {
	st := store.New()
	sink := &fakeSink{}
	runner := NewRunner(quietLogger(), &fakeSource{records: sampleRecords()}, engine.NewPipeline(quietLogger(), engine.DefaultOptions()), st, sink)

	var notified string
	runner.OnPublish(func(s *models.Snapshot) { notified = s.RunID })

	snap, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Dropped)

	cur, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, cur.RunID)
	assert.Equal(t, 1, sink.published)
	assert.Equal(t, snap.RunID, notified)
}

func TestRunnerFailureKeepsPreviousSnapshot(t *testing.T) {
	st := store.New()
	source := &fakeSource{records: sampleRecords()}
	sink := &fakeSink{}
	runner := NewRunner(quietLogger(), source, engine.NewPipeline(quietLogger(), engine.DefaultOptions()), st, sink)

	first, err := runner.RunOnce(context.Background())
	require.NoError(t, err)

	diskGone := errors.New("disk gone")
	source.fail(diskGone)
	_, err = runner.RunOnce(context.Background())
	require.ErrorIs(t, err, diskGone)
	assert.Equal(t, "runner.load", utils.OpOf(err))

	source.fail(nil)
	mysqlDown := errors.New("mysql down")
	sink.err = mysqlDown
	_, err = runner.RunOnce(context.Background())
	require.ErrorIs(t, err, mysqlDown)
	assert.Equal(t, "runner.sink", utils.OpOf(err))

	cur, err := st.Current()
	require.NoError(t, err)
	assert.Equal(t, first.RunID, cur.RunID, "previous snapshot remains")
}

func TestRunnerNotConfigured(t *testing.T) {
	_, err := NewRunner(quietLogger(), nil, nil, nil, nil).RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, "runner.RunOnce", utils.OpOf(err))
}

func TestRunnerLoopStopsOnCancel(t *testing.T) {
	source := &fakeSource{records: sampleRecords()}
	runner := NewRunner(quietLogger(), source, engine.NewPipeline(quietLogger(), engine.DefaultOptions()), store.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Loop(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return source.callCount() > 0 }, 2*time.Second, 5*time.Millisecond, "loop never ran")
	cancel()
	assert.NoError(t, <-done, "clean stop")

	assert.Error(t, runner.Loop(context.Background(), 0), "zero interval")
}
