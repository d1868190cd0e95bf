package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// StatusCounter reports the number of requests per overall status
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error)
}

// GaugeSink receives refreshed request counts
type GaugeSink interface {
	SetRequestCounts(counts map[entity.RequestStatus]int)
}

// RequestGaugeWorker refreshes the per-status request gauge on an interval
type RequestGaugeWorker struct {
	counter  StatusCounter
	sink     GaugeSink
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	stopped chan struct{}
	cancel  context.CancelFunc
}

// NewRequestGaugeWorker creates a gauge refresher
func NewRequestGaugeWorker(counter StatusCounter, sink GaugeSink, interval time.Duration, logger *zap.Logger) *RequestGaugeWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RequestGaugeWorker{
		counter:  counter,
		sink:     sink,
		interval: interval,
		logger:   logger,
	}
}

func (w *RequestGaugeWorker) Name() string {
	return "request_gauge"
}

// Start refreshes once and then keeps refreshing until ctx is done or Stop is called
func (w *RequestGaugeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped != nil {
		return fmt.Errorf("worker %s already started", w.Name())
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.stopped = make(chan struct{})

	go w.run(runCtx, w.stopped)
	return nil
}

// Stop cancels the loop and waits for it to exit
func (w *RequestGaugeWorker) Stop() error {
	w.mu.Lock()
	stopped, cancel := w.stopped, w.cancel
	w.stopped, w.cancel = nil, nil
	w.mu.Unlock()

	if stopped == nil {
		return nil
	}
	cancel()
	<-stopped
	return nil
}

func (w *RequestGaugeWorker) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Refresh(ctx)
		}
	}
}

// Refresh reads the counts once and publishes them
func (w *RequestGaugeWorker) Refresh(ctx context.Context) {
	counts, err := w.counter.CountByStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("Failed to count requests", zap.Error(err))
		}
		return
	}
	w.sink.SetRequestCounts(counts)
}
