package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUploadStartedRecordsTerminalState(t *testing.T) {
	before := testutil.ToFloat64(uploadsTotal.WithLabelValues("aborted"))
	inFlight := testutil.ToFloat64(uploadsInFlight)

	finish := UploadStarted()
	if got := testutil.ToFloat64(uploadsInFlight); got != inFlight+1 {
		t.Fatalf("in flight = %v, want %v", got, inFlight+1)
	}
	finish("aborted", 0, 10*time.Millisecond)

	if got := testutil.ToFloat64(uploadsTotal.WithLabelValues("aborted")); got != before+1 {
		t.Fatalf("aborted total = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(uploadsInFlight); got != inFlight {
		t.Fatalf("in flight = %v, want %v", got, inFlight)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncSideEffectFailure("record")

	r := gin.New()
	r.GET("/metrics", Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `upload_side_effect_failures_total{kind="record"}`) {
		t.Fatalf("metrics output missing side effect counter")
	}
}
