package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncUpscale(t *testing.T) {
	before := testutil.ToFloat64(upscaleTotal.WithLabelValues("done"))
	IncUpscale("done")
	after := testutil.ToFloat64(upscaleTotal.WithLabelValues("done"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestHandlerRendersMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncMembershipCheck("member")

	r := gin.New()
	r.GET("/metrics", Handler())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "membership_checks_total") {
		t.Fatalf("expected membership_checks_total in output")
	}
}
