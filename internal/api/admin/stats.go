// stats.go implements the admin dashboard statistics handlers. Location
// admins get numbers scoped to their own site; super admins see everything.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
)

// StatsHandlers handles dashboard statistics
type StatsHandlers struct {
	statsRepo *repositories.StatsRepository
}

// NewStatsHandlers creates a new stats handlers instance
func NewStatsHandlers(sqlxDB *sqlx.DB) *StatsHandlers {
	return &StatsHandlers{statsRepo: repositories.NewStatsRepository(sqlxDB)}
}

// @Summary      Dashboard statistics
// @Description  Aggregate counters for the admin dashboard: trip totals by state, group counts, estimated savings, pending join requests. Location admins see only their site.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  repositories.DashboardStats
// @Router       /api/v1/admin/stats/dashboard [get]
// Dashboard returns the aggregate dashboard counters.
// GET /api/v1/admin/stats/dashboard
func (h *StatsHandlers) Dashboard(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	stats, err := h.statsRepo.GetDashboardStats(c.Request.Context(), actor.ScopeLocationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary      Trips per day
// @Description  Daily raw trip submission counts over the last N days (default 30, max 365). Location admins see only their site.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Window size in days"
// @Success      200  {object}  map[string]interface{}  "buckets"
// @Router       /api/v1/admin/stats/trips-per-day [get]
// TripsPerDay returns daily submission counts.
// GET /api/v1/admin/stats/trips-per-day
func (h *StatsHandlers) TripsPerDay(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	buckets, err := h.statsRepo.GetTripsPerDay(c.Request.Context(), days, actor.ScopeLocationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}
