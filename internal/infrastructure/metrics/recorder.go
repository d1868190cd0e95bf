package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

const namespace = "clearance"

// Recorder implements port.MetricsRecorder on its own Prometheus registry
type Recorder struct {
	registry *prometheus.Registry

	requestsCreated prometheus.Counter
	decisions       *prometheus.CounterVec
	decisionErrors  *prometheus.CounterVec
	openRequests    *prometheus.GaugeVec
}

// NewRecorder creates a recorder with process and Go runtime collectors registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		requestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Total number of clearance requests created.",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of stage decisions committed.",
		}, []string{"department", "decision"}),
		decisionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_errors_total",
			Help:      "Total number of refused or failed decisions by error kind.",
		}, []string{"kind"}),
		openRequests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests",
			Help:      "Current number of requests per overall status.",
		}, []string{"status"}),
	}
}

func (r *Recorder) RequestCreated() {
	r.requestsCreated.Inc()
}

func (r *Recorder) DecisionRecorded(dept entity.Department, decision string) {
	r.decisions.WithLabelValues(string(dept), decision).Inc()
}

func (r *Recorder) DecisionFailed(kind string) {
	r.decisionErrors.WithLabelValues(kind).Inc()
}

// SetRequestCounts replaces the per-status gauge. Statuses missing from
// counts are reported as zero.
func (r *Recorder) SetRequestCounts(counts map[entity.RequestStatus]int) {
	for _, status := range []entity.RequestStatus{
		entity.RequestStatusSubmitted,
		entity.RequestStatusInProgress,
		entity.RequestStatusFullyApproved,
		entity.RequestStatusRejected,
	} {
		r.openRequests.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ port.MetricsRecorder = (*Recorder)(nil)
