package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage(t *testing.T) {
	before := testutil.ToFloat64(stageOutcomesTotal.WithLabelValues("scale_services", "completed"))
	ObserveStage("scale_services", "completed", 2*time.Second)
	after := testutil.ToFloat64(stageOutcomesTotal.WithLabelValues("scale_services", "completed"))
	assert.Equal(t, before+1, after)
}

func TestObserveAWSCall_ResultLabel(t *testing.T) {
	okBefore := testutil.ToFloat64(awsCallsTotal.WithLabelValues("RDS", "PromoteReadReplica", "ok"))
	errBefore := testutil.ToFloat64(awsCallsTotal.WithLabelValues("RDS", "PromoteReadReplica", "error"))

	ObserveAWSCall("RDS", "PromoteReadReplica", nil, time.Millisecond)
	ObserveAWSCall("RDS", "PromoteReadReplica", errors.New("throttled"), time.Millisecond)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(awsCallsTotal.WithLabelValues("RDS", "PromoteReadReplica", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(awsCallsTotal.WithLabelValues("RDS", "PromoteReadReplica", "error")))
}

func TestAddTargetsRegistered(t *testing.T) {
	before := testutil.ToFloat64(targetsRegisteredTotal)
	AddTargetsRegistered(3)
	assert.Equal(t, before+3, testutil.ToFloat64(targetsRegisteredTotal))
}

func TestObserveActivity(t *testing.T) {
	before := testutil.CollectAndCount(activityDuration)
	ObserveActivity("PromoteDatabase", errors.New("boom"), time.Second)
	ObserveActivity("PromoteDatabase", nil, time.Second)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(activityDuration), before)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(activityDuration), 2)
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(":0", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	notReady := errors.New("temporal worker not started")
	srv := NewServer(":0", func() error { return notReady })

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "temporal worker not started")

	notReady = nil
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
