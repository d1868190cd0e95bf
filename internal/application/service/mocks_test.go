package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/nodue-clearance/internal/application/dispatcher"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/event"
)

// Mock repositories

type mockRequestRepo struct {
	createFunc                 func(ctx context.Context, req *entity.Request) error
	getByIDFunc                func(ctx context.Context, id string) (*entity.Request, error)
	getForUpdateFunc           func(ctx context.Context, id string) (*entity.Request, error)
	saveDecisionFunc           func(ctx context.Context, req *entity.Request, stage *entity.Stage) error
	hasOpenRequestFunc         func(ctx context.Context, ownerID string) (bool, error)
	listByOwnerFunc            func(ctx context.Context, ownerID string) ([]*entity.Request, error)
	listAwaitingDepartmentFunc func(ctx context.Context, dept entity.Department, limit, offset int) ([]*entity.Request, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.Request, error) {
	if m.getForUpdateFunc != nil {
		return m.getForUpdateFunc(ctx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *mockRequestRepo) SaveDecision(ctx context.Context, req *entity.Request, stage *entity.Stage) error {
	if m.saveDecisionFunc != nil {
		return m.saveDecisionFunc(ctx, req, stage)
	}
	return nil
}

func (m *mockRequestRepo) HasOpenRequest(ctx context.Context, ownerID string) (bool, error) {
	if m.hasOpenRequestFunc != nil {
		return m.hasOpenRequestFunc(ctx, ownerID)
	}
	return false, nil
}

func (m *mockRequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockRequestRepo) ListAwaitingDepartment(ctx context.Context, dept entity.Department, limit, offset int) ([]*entity.Request, error) {
	if m.listAwaitingDepartmentFunc != nil {
		return m.listAwaitingDepartmentFunc(ctx, dept, limit, offset)
	}
	return nil, nil
}

func (m *mockRequestRepo) ListReviewedBy(ctx context.Context, actorID string, limit, offset int) ([]*entity.ReviewRecord, error) {
	return nil, nil
}

func (m *mockRequestRepo) CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error) {
	return map[entity.RequestStatus]int{}, nil
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	records []*entity.RequestHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.RequestHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	history.ID = int64(len(m.records) + 1)
	m.records = append(m.records, history)
	return nil
}

func (m *mockHistoryRepo) GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.RequestHistory
	for _, r := range m.records {
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingDispatcher records events instead of running handlers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (d *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}

func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.DispatchAsync(ctx, evt)
	return nil
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo { return nil }
func (d *recordingDispatcher) Close() error                                     { return nil }

func (d *recordingDispatcher) ofType(t event.Type) []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*event.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type stubRenderer struct {
	rendered []string
}

func (r *stubRenderer) Render(req *entity.Request, issuedAt time.Time) ([]byte, error) {
	r.rendered = append(r.rendered, req.ID)
	return []byte("certificate:" + req.ReferenceCode), nil
}

func (r *stubRenderer) ContentType() string   { return "application/octet-stream" }
func (r *stubRenderer) FileExtension() string { return ".bin" }

type recordingMetrics struct {
	mu        sync.Mutex
	created   int
	decisions map[string]int
	failures  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{decisions: map[string]int{}, failures: map[string]int{}}
}

func (m *recordingMetrics) RequestCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) DecisionRecorded(dept entity.Department, decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[string(dept)+"/"+decision]++
}

func (m *recordingMetrics) DecisionFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind]++
}

type sentMessage struct {
	dept    entity.Department
	message string
}

type mockNotifier struct {
	mu          sync.Mutex
	departments []sentMessage
	registrar   []string
	err         error
}

func (n *mockNotifier) NotifyDepartment(ctx context.Context, dept entity.Department, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.departments = append(n.departments, sentMessage{dept: dept, message: message})
	return nil
}

func (n *mockNotifier) NotifyRegistrar(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.registrar = append(n.registrar, message)
	return nil
}
