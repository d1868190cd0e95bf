package port

import "github.com/garyjia/nodue-clearance/internal/domain/entity"

// MetricsRecorder receives workflow observations
type MetricsRecorder interface {
	RequestCreated()
	DecisionRecorded(dept entity.Department, decision string)
	DecisionFailed(kind string)
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) RequestCreated()                            {}
func (NopMetrics) DecisionRecorded(entity.Department, string) {}
func (NopMetrics) DecisionFailed(string)                      {}
