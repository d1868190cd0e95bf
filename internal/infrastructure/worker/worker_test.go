package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

type fakeWorker struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
	mu       *sync.Mutex
}

func (w *fakeWorker) record(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	*w.log = append(*w.log, s)
}

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.record("start " + w.name)
	return nil
}

func (w *fakeWorker) Stop() error {
	w.record("stop " + w.name)
	return w.stopErr
}

func (w *fakeWorker) Name() string { return w.name }

func TestManager_Lifecycle(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := NewManager(zap.NewNop())
	m.Register(&fakeWorker{name: "a", log: &log, mu: &mu})
	m.Register(&fakeWorker{name: "b", startErr: errors.New("boom"), log: &log, mu: &mu})
	m.Register(&fakeWorker{name: "c", log: &log, mu: &mu})
	assert.Equal(t, 3, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"start a", "start c", "stop c", "stop a"}, log)

	require.NoError(t, m.StopAll())
}

func TestManager_StopErrors(t *testing.T) {
	var log []string
	var mu sync.Mutex
	m := NewManager(zap.NewNop())
	m.Register(&fakeWorker{name: "a", stopErr: errors.New("stuck"), log: &log, mu: &mu})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()
	assert.ErrorContains(t, err, "a: stuck")
}

type fakeCounter struct {
	calls atomic.Int32
	err   error
}

func (c *fakeCounter) CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return map[entity.RequestStatus]int{entity.RequestStatusSubmitted: 4}, nil
}

type fakeSink struct {
	mu     sync.Mutex
	counts map[entity.RequestStatus]int
	sets   int
}

func (s *fakeSink) SetRequestCounts(counts map[entity.RequestStatus]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = counts
	s.sets++
}

func (s *fakeSink) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func TestRequestGaugeWorker_RefreshesUntilStopped(t *testing.T) {
	counter := &fakeCounter{}
	sink := &fakeSink{}
	w := NewRequestGaugeWorker(counter, sink, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool { return sink.setCount() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	after := sink.setCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sink.setCount())
	assert.Equal(t, 4, sink.counts[entity.RequestStatusSubmitted])

	require.NoError(t, w.Stop())
}

func TestRequestGaugeWorker_CountFailureLeavesGauge(t *testing.T) {
	counter := &fakeCounter{err: errors.New("db down")}
	sink := &fakeSink{}
	w := NewRequestGaugeWorker(counter, sink, time.Hour, zap.NewNop())

	w.Refresh(context.Background())
	assert.Equal(t, int32(1), counter.calls.Load())
	assert.Equal(t, 0, sink.setCount())
}
