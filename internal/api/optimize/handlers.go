// Package optimize implements the admin HTTP handlers for proposing,
// approving, and rejecting trip optimization groups.
package optimize

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/notify"
	"github.com/NganNgoVoThanh/trips-management/internal/safego"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// Handlers serves the optimization group endpoints
type Handlers struct {
	svc    *services.OptimizerService
	sender notify.EmailSender
	logger *slog.Logger
}

// NewHandlers creates a new optimizer handlers instance
func NewHandlers(db *sql.DB, cfg *config.OptimizerConfig, sender notify.EmailSender, logger *slog.Logger) *Handlers {
	tempMaxAge := time.Duration(cfg.TempMaxAgeDays) * 24 * time.Hour
	return &Handlers{
		svc:    services.NewOptimizerService(db, tempMaxAge, logger),
		sender: sender,
		logger: logger,
	}
}

type proposeGroupRequest struct {
	TripIDs          []string `json:"trip_ids" binding:"required"`
	DepartureTime    string   `json:"departure_time" binding:"required"`
	VehicleType      string   `json:"vehicle_type" binding:"required"`
	EstimatedSavings float64  `json:"estimated_savings"`
}

// @Summary      Propose optimization group
// @Description  Group two or more compatible approved trips into a proposed optimization. Claims the trips atomically; a concurrent proposal over the same trips loses with 409.
// @Tags         Optimization
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "trip_ids, departure_time (RFC3339), vehicle_type, estimated_savings"
// @Success      201  {object}  models.GroupWithMembers
// @Failure      400  {object}  map[string]interface{}  "Incompatible or ineligible trips"
// @Failure      409  {object}  map[string]interface{}  "Trips already claimed"
// @Router       /api/v1/optimize/groups [post]
// Propose creates a proposed group over compatible trips.
// POST /api/v1/optimize/groups
func (h *Handlers) Propose(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req proposeGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tripIDs := make([]uuid.UUID, 0, len(req.TripIDs))
	for _, raw := range req.TripIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id: " + raw})
			return
		}
		tripIDs = append(tripIDs, id)
	}
	departureTime, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_time, want RFC3339"})
		return
	}

	group, err := h.svc.ProposeGroup(c.Request.Context(), services.ProposeGroupInput{
		TripIDs:          tripIDs,
		DepartureTime:    departureTime,
		VehicleType:      req.VehicleType,
		EstimatedSavings: req.EstimatedSavings,
		CreatedBy:        actor.UserID,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, group)
}

// @Summary      List optimization groups
// @Description  List optimization groups, optionally filtered by status (proposed, approved, rejected).
// @Tags         Optimization
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Filter by group status"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "groups, total, limit, offset"
// @Failure      400  {object}  map[string]interface{}  "Unknown status"
// @Router       /api/v1/optimize/groups [get]
// List returns optimization groups.
// GET /api/v1/optimize/groups
func (h *Handlers) List(c *gin.Context) {
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	limit, offset := pagination(c)

	groups, total, err := h.svc.ListGroups(c.Request.Context(), status, limit, offset)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary      Get optimization group
// @Description  Retrieve a group with its member trips.
// @Tags         Optimization
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Group ID"
// @Success      200  {object}  models.GroupWithMembers
// @Failure      404  {object}  map[string]interface{}  "Group not found"
// @Router       /api/v1/optimize/groups/{id} [get]
// Get retrieves a group and its member trips.
// GET /api/v1/optimize/groups/:id
func (h *Handlers) Get(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	group, err := h.svc.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// @Summary      Approve optimization group
// @Description  Approve a proposed group. Promotes the shadow records to final, marks the raw trips optimized, and fixes the group permanently. All-or-nothing.
// @Tags         Optimization
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Group ID"
// @Success      200  {object}  models.GroupWithMembers
// @Failure      404  {object}  map[string]interface{}  "Group not found"
// @Failure      409  {object}  map[string]interface{}  "Group already decided"
// @Router       /api/v1/optimize/groups/{id}/approve [post]
// Approve finalizes a proposed group.
// POST /api/v1/optimize/groups/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	actor, groupID, ok := actorAndID(c)
	if !ok {
		return
	}

	group, err := h.svc.ApproveGroup(c.Request.Context(), groupID, actor.UserID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// Groups are only ever decided out of the proposed state.
	middleware.SetAuditTransition(c, models.GroupStatusProposed, group.Status)

	g := *group
	safego.Go(func() {
		notify.GroupApproved(h.sender, &g)
	})

	c.JSON(http.StatusOK, group)
}

// @Summary      Reject optimization group
// @Description  Reject a proposed group. Deletes its shadow records and releases the claimed trips for future proposals.
// @Tags         Optimization
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Group ID"
// @Success      200  {object}  models.OptimizationGroup
// @Failure      404  {object}  map[string]interface{}  "Group not found"
// @Failure      409  {object}  map[string]interface{}  "Group already decided"
// @Router       /api/v1/optimize/groups/{id}/reject [post]
// Reject discards a proposed group and releases its trips.
// POST /api/v1/optimize/groups/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	actor, groupID, ok := actorAndID(c)
	if !ok {
		return
	}

	group, err := h.svc.RejectGroup(c.Request.Context(), groupID, actor.UserID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	middleware.SetAuditTransition(c, models.GroupStatusProposed, group.Status)
	c.JSON(http.StatusOK, group)
}

// @Summary      Clean up stale proposals
// @Description  Force-reject proposed groups older than the configured age, removing their shadow records and releasing their trips. Also runs on a schedule; this endpoint triggers an immediate pass.
// @Tags         Optimization
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "temp_trips_removed"
// @Router       /api/v1/optimize/cleanup [post]
// Cleanup triggers an immediate stale-proposal sweep.
// POST /api/v1/optimize/cleanup
func (h *Handlers) Cleanup(c *gin.Context) {
	removed, err := h.svc.CleanupStaleTemp(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"temp_trips_removed": removed})
}

func actorAndID(c *gin.Context) (services.Actor, uuid.UUID, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return services.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return services.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func pagination(c *gin.Context) (int, int) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
