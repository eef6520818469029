package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Handler serves ledger statistics.
type Handler struct {
	store *Store
	allow func(ip string) bool
}

// NewHandler creates a new analytics handler. allow decides per client IP
// whether a stats request may proceed; nil allows every request.
func NewHandler(store *Store, allow func(ip string) bool) *Handler {
	return &Handler{store: store, allow: allow}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	PeriodDays int    `json:"period_days"`
}

const maxStatsDays = 366

// GetStats returns ledger totals as JSON. The window is ?days=N (1..366) or
// ?period=today|week|month|year, defaulting to a week.
func (h *Handler) GetStats(c echo.Context) error {
	if h.allow != nil && !h.allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests. Please try again later."})
	}

	days := periodDays(c.QueryParam("period"))
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 366"})
		}
		days = n
	}

	from, to := calcTimeRange(time.Now().UTC(), days)
	stats, err := h.store.GetStats(c.Request().Context(), from, to)
	if err != nil {
		log.Error().Err(err).Msg("failed to get render stats")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Stats: stats, PeriodDays: days})
}

// RegisterRoutes mounts the stats endpoint on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/stats", h.GetStats)
}

// periodDays maps a named period to a number of days.
func periodDays(period string) int {
	switch period {
	case "today":
		return 1
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// calcTimeRange covers the last days whole UTC days, today included.
func calcTimeRange(now time.Time, days int) (time.Time, time.Time) {
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	return from, to
}
