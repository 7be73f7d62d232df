package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newStatsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStore()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	for i, e := range []Event{
		{UserID: "a", Kind: KindUpscaleSuccess, Tier: "elite", At: now.Add(-time.Hour)},
		{UserID: "b", Kind: KindStart, At: now.AddDate(0, 0, -3)},
	} {
		e.ID = string(rune('a' + i))
		if err := store.Store(context.Background(), e); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	h := NewHandler(store)
	h.Now = func() time.Time { return now }
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestStatsHandler(t *testing.T) {
	router := newStatsRouter(t)

	tests := []struct {
		query     string
		wantCode  int
		wantUsers float64
	}{
		{query: "", wantCode: http.StatusOK, wantUsers: 1},
		{query: "?period=month", wantCode: http.StatusOK, wantUsers: 2},
		{query: "?period=year", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats"+tt.query, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.wantCode {
			t.Fatalf("%q: expected %d, got %d", tt.query, tt.wantCode, resp.Code)
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		var body struct {
			Period  string `json:"period"`
			Summary struct {
				UniqueUsers float64        `json:"uniqueUsers"`
				Totals      map[string]int `json:"totals"`
			} `json:"summary"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Summary.UniqueUsers != tt.wantUsers {
			t.Fatalf("%q: expected %v users, got %v", tt.query, tt.wantUsers, body.Summary.UniqueUsers)
		}
		if body.Summary.Totals["upscale_success"] != 1 {
			t.Fatalf("%q: expected 1 success, got %v", tt.query, body.Summary.Totals)
		}
	}
}

func TestReportHandler(t *testing.T) {
	router := newStatsRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/report", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Month.UniqueUsers != 2 || report.Day.UniqueUsers != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
