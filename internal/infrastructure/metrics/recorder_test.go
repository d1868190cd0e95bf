package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.RequestCreated()
	r.RequestCreated()
	r.DecisionRecorded(entity.DepartmentLibrary, "APPROVE")
	r.DecisionRecorded(entity.DepartmentLibrary, "REJECT")
	r.DecisionRecorded(entity.DepartmentLibrary, "APPROVE")
	r.DecisionFailed("state_conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requestsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("Library", "APPROVE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("Library", "REJECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisionErrors.WithLabelValues("state_conflict")))
}

func TestRecorder_SetRequestCounts(t *testing.T) {
	r := NewRecorder()

	r.SetRequestCounts(map[entity.RequestStatus]int{
		entity.RequestStatusSubmitted: 3,
		entity.RequestStatusRejected:  1,
	})
	assert.Equal(t, 3.0, testutil.ToFloat64(r.openRequests.WithLabelValues("SUBMITTED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.openRequests.WithLabelValues("IN_PROGRESS")))

	r.SetRequestCounts(map[entity.RequestStatus]int{entity.RequestStatusInProgress: 2})
	assert.Equal(t, 0.0, testutil.ToFloat64(r.openRequests.WithLabelValues("SUBMITTED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.openRequests.WithLabelValues("IN_PROGRESS")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.RequestCreated()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "clearance_requests_created_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
