package usage

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/server/respond"
)

// Handler exposes usage statistics to operators.
type Handler struct {
	Querier Querier
	Now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(q Querier) *Handler {
	return &Handler{Querier: q, Now: time.Now}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.getStats)
	rg.GET("/stats/report", h.getReport)
}

func (h *Handler) getStats(c *gin.Context) {
	period, err := ParsePeriod(c.Query("period"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "period must be day or month", nil)
		return
	}

	sum, err := SummarizePeriod(c.Request.Context(), h.Querier, period, h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}

	respond.OK(c, gin.H{
		"period":  period,
		"summary": sum,
	})
}

func (h *Handler) getReport(c *gin.Context) {
	report, err := BuildReport(c.Request.Context(), h.Querier, h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, report)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load usage", nil)
	}
}
