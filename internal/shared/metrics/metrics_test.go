package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(workflowTransitions.WithLabelValues("upload", "extraction"))
	ObserveTransition("upload", "extraction")
	if got := testutil.ToFloat64(workflowTransitions.WithLabelValues("upload", "extraction")); got != before+1 {
		t.Fatalf("expected transition counter %v, got %v", before+1, got)
	}

	beforeErr := testutil.ToFloat64(artifactOps.WithLabelValues("delete", "exit", "error"))
	ObserveArtifact("delete", "exit", errors.New("denied"))
	if got := testutil.ToFloat64(artifactOps.WithLabelValues("delete", "exit", "error")); got != beforeErr+1 {
		t.Fatalf("expected artifact error counter %v, got %v", beforeErr+1, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncExit("prompted")

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "insights_workflow_exit_total") {
		t.Fatalf("expected exit counter in exposition")
	}
}
