// Package joinrequests implements the HTTP handlers for ride-along requests
// on existing trips.
package joinrequests

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/notify"
	"github.com/NganNgoVoThanh/trips-management/internal/safego"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// Handlers serves the join request endpoints
type Handlers struct {
	svc    *services.JoinRequestsService
	sender notify.EmailSender
	logger *slog.Logger
}

// NewHandlers creates a new join request handlers instance
func NewHandlers(db *sql.DB, sqlxDB *sqlx.DB, sender notify.EmailSender, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:    services.NewJoinRequestsService(db, sqlxDB, logger),
		sender: sender,
		logger: logger,
	}
}

type createJoinRequest struct {
	TripID string  `json:"trip_id" binding:"required"`
	Reason *string `json:"reason"`
}

// @Summary      Request to join a trip
// @Description  Ask to ride along on another employee's trip. One open request per trip per requester.
// @Tags         JoinRequests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "trip_id, reason (optional)"
// @Success      201  {object}  models.JoinRequest
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      404  {object}  map[string]interface{}  "Trip not found"
// @Failure      409  {object}  map[string]interface{}  "Duplicate open request"
// @Router       /api/v1/join-requests [post]
// Create submits a ride-along request.
// POST /api/v1/join-requests
func (h *Handlers) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip_id"})
		return
	}

	jr, err := h.svc.CreateJoinRequest(c.Request.Context(), services.CreateJoinRequestInput{
		TripID:    tripID,
		Requester: user,
		Reason:    req.Reason,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, jr)
}

// @Summary      List join requests
// @Description  List join requests. Regular users see their own; admins see all within their location scope. Optional filters: trip_id, status.
// @Tags         JoinRequests
// @Security     Bearer
// @Produce      json
// @Param        trip_id  query  string  false  "Restrict to one trip"
// @Param        status   query  string  false  "Filter by status (pending, approved, rejected, cancelled)"
// @Param        limit    query  int     false  "Page size (admin listing only)"
// @Param        offset   query  int     false  "Page offset (admin listing only)"
// @Success      200  {object}  map[string]interface{}  "join_requests, total"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/join-requests [get]
// List returns join requests visible to the caller.
// GET /api/v1/join-requests
func (h *Handlers) List(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if v := c.Query("trip_id"); v != "" {
		tripID, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip_id filter"})
			return
		}
		list, err := h.svc.ListForTrip(c.Request.Context(), actor, tripID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"join_requests": list, "total": len(list)})
		return
	}

	if !actor.IsAdmin {
		list, err := h.svc.ListMine(c.Request.Context(), actor)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"join_requests": list, "total": len(list)})
		return
	}

	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	limit, offset := pagination(c)
	list, total, err := h.svc.ListAll(c.Request.Context(), actor, status, limit, offset)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"join_requests": list,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// @Summary      Get join request
// @Description  Retrieve one join request. Visible to the requester, the trip owner's admins, and super admins.
// @Tags         JoinRequests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Join request ID"
// @Success      200  {object}  models.JoinRequest
// @Failure      403  {object}  map[string]interface{}  "Forbidden"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /api/v1/join-requests/{id} [get]
// Get retrieves a single join request.
// GET /api/v1/join-requests/:id
func (h *Handlers) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	jr, err := h.svc.GetJoinRequest(c.Request.Context(), actor, id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, jr)
}

type decideJoinRequest struct {
	Notes *string `json:"notes"`
}

// @Summary      Approve join request
// @Description  Approve a pending ride-along request. Location admins may only decide requests within their site.
// @Tags         JoinRequests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true   "Join request ID"
// @Param        body  body  object  false  "notes (optional)"
// @Success      200  {object}  models.JoinRequest
// @Failure      403  {object}  map[string]interface{}  "Outside admin scope"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Already decided"
// @Router       /api/v1/join-requests/{id}/approve [post]
// Approve approves a pending request.
// POST /api/v1/join-requests/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	h.decide(c, h.svc.ApproveJoinRequest)
}

// @Summary      Reject join request
// @Description  Reject a pending ride-along request. A non-empty notes field explaining the decision is required.
// @Tags         JoinRequests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Join request ID"
// @Param        body  body  object  true  "notes: reason for rejection (required)"
// @Success      200  {object}  models.JoinRequest
// @Failure      400  {object}  map[string]interface{}  "Missing notes"
// @Failure      403  {object}  map[string]interface{}  "Outside admin scope"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Already decided"
// @Router       /api/v1/join-requests/{id}/reject [post]
// Reject rejects a pending request; notes are mandatory.
// POST /api/v1/join-requests/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	h.decide(c, h.svc.RejectJoinRequest)
}

func (h *Handlers) decide(c *gin.Context, fn func(ctx context.Context, actor services.Actor, id uuid.UUID, notes *string) (*models.JoinRequest, error)) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req decideJoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	jr, err := fn(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// Requests are only ever decided out of the pending state.
	middleware.SetAuditTransition(c, models.JoinRequestStatusPending, jr.Status)
	h.notifyDecision(jr)
	c.JSON(http.StatusOK, jr)
}

// @Summary      Cancel join request
// @Description  Withdraw an own pending ride-along request. Only the requester may cancel.
// @Tags         JoinRequests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Join request ID"
// @Success      200  {object}  map[string]interface{}  "status: cancelled"
// @Failure      403  {object}  map[string]interface{}  "Not the requester"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Already decided"
// @Router       /api/v1/join-requests/{id}/cancel [post]
// Cancel withdraws the caller's own pending request.
// POST /api/v1/join-requests/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	if err := h.svc.CancelJoinRequest(c.Request.Context(), actor, id); err != nil {
		respond.Error(c, err)
		return
	}

	middleware.SetAuditTransition(c, models.JoinRequestStatusPending, models.JoinRequestStatusCancelled)
	c.JSON(http.StatusOK, gin.H{"status": models.JoinRequestStatusCancelled})
}

func actorAndID(c *gin.Context) (services.Actor, uuid.UUID, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return services.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid join request id"})
		return services.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// notifyDecision emails the requester about the decision, fire-and-forget.
func (h *Handlers) notifyDecision(jr *models.JoinRequest) {
	r := *jr
	safego.Go(func() {
		if err := notify.JoinRequestDecided(h.sender, &r); err != nil {
			h.logger.Error("join request decision email failed", "join_request_id", r.ID, "error", err)
		}
	})
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
