// Package trips implements the HTTP handlers for submitting, listing, and
// deciding business trips.
package trips

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/notify"
	"github.com/NganNgoVoThanh/trips-management/internal/safego"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// Handlers serves the trip endpoints
type Handlers struct {
	svc    *services.TripsService
	trips  *repositories.TripRepository
	sender notify.EmailSender
	logger *slog.Logger
}

// NewHandlers creates a new trip handlers instance
func NewHandlers(db *sql.DB, sender notify.EmailSender, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:    services.NewTripsService(db, logger),
		trips:  repositories.NewTripRepository(db),
		sender: sender,
		logger: logger,
	}
}

type createTripRequest struct {
	UserEmail             string   `json:"user_email"`
	DepartureLocationID   string   `json:"departure_location_id" binding:"required"`
	DestinationLocationID string   `json:"destination_location_id" binding:"required"`
	DepartureDate         string   `json:"departure_date" binding:"required"`
	DepartureTime         string   `json:"departure_time" binding:"required"`
	EstimatedCost         *float64 `json:"estimated_cost"`
	VehicleType           *string  `json:"vehicle_type"`
}

// @Summary      Submit a trip
// @Description  Create a new trip booking. Authenticated callers book under their own account; unauthenticated callers must supply user_email.
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "user_email (if unauthenticated), departure_location_id, destination_location_id, departure_date (YYYY-MM-DD), departure_time (RFC3339), estimated_cost, vehicle_type"
// @Success      201  {object}  models.Trip  "Trip created"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/trips [post]
// Create submits a new trip booking.
// POST /api/v1/trips
func (h *Handlers) Create(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	departureLocID, err := uuid.Parse(req.DepartureLocationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_location_id"})
		return
	}
	destinationLocID, err := uuid.Parse(req.DestinationLocationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination_location_id"})
		return
	}
	departureDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_date, want YYYY-MM-DD"})
		return
	}
	departureTime, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_time, want RFC3339"})
		return
	}

	input := services.CreateTripInput{
		UserEmail:             req.UserEmail,
		DepartureLocationID:   departureLocID,
		DestinationLocationID: destinationLocID,
		DepartureDate:         departureDate,
		DepartureTime:         departureTime,
		EstimatedCost:         req.EstimatedCost,
		VehicleType:           req.VehicleType,
	}

	// An authenticated session overrides whatever email the payload carries.
	if user, ok := middleware.CurrentUser(c); ok {
		input.UserID = &user.ID
		input.UserEmail = user.Email
	}

	trip, err := h.svc.CreateTrip(c.Request.Context(), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// @Summary      List trips
// @Description  List trips visible to the caller. Unauthenticated callers see the shared booking board (raw submissions only); users see their own trips; admins see their scope.
// @Tags         Trips
// @Produce      json
// @Param        status                 query  string  false  "Filter by trip status"
// @Param        data_type              query  string  false  "Filter by record kind (raw, temp, final); admin only"
// @Param        departure_location_id  query  string  false  "Filter by departure location"
// @Param        limit                  query  int     false  "Page size (default 50, max 200)"
// @Param        offset                 query  int     false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "trips, total, limit, offset"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Router       /api/v1/trips [get]
// List returns trips visible to the caller.
// GET /api/v1/trips
func (h *Handlers) List(c *gin.Context) {
	filters, err := parseTripFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, offset := pagination(c)

	var (
		list  []*models.Trip
		total int
	)
	if actor, ok := middleware.CurrentActor(c); ok {
		list, total, err = h.svc.ListTrips(c.Request.Context(), actor, filters, limit, offset)
	} else {
		// Anonymous callers get the shared booking board: raw submissions
		// only, never shadow or final records.
		raw := models.DataTypeRaw
		filters.DataType = &raw
		list, total, err = h.trips.ListTrips(c.Request.Context(), filters, limit, offset)
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trips":  list,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary      Get trip
// @Description  Retrieve a single trip. Owners, super admins, and location admins within scope may read it.
// @Tags         Trips
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Trip ID"
// @Success      200  {object}  models.Trip
// @Failure      403  {object}  map[string]interface{}  "Forbidden"
// @Failure      404  {object}  map[string]interface{}  "Trip not found"
// @Router       /api/v1/trips/{id} [get]
// Get retrieves a single trip.
// GET /api/v1/trips/:id
func (h *Handlers) Get(c *gin.Context) {
	actor, tripID, ok := h.actorAndID(c)
	if !ok {
		return
	}

	trip, err := h.svc.GetTrip(c.Request.Context(), actor, tripID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

type decideTripRequest struct {
	Status string `json:"status"`
}

// @Summary      Approve trip
// @Description  Move a pending trip into an approved status (approved, approved_solo, or auto_approved). Location admins may only decide trips departing from their site.
// @Tags         Trips
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true   "Trip ID"
// @Param        body  body  object  false  "status: target approval status (default approved)"
// @Success      200  {object}  models.Trip
// @Failure      400  {object}  map[string]interface{}  "Invalid target status"
// @Failure      403  {object}  map[string]interface{}  "Outside admin scope"
// @Failure      404  {object}  map[string]interface{}  "Trip not found"
// @Failure      409  {object}  map[string]interface{}  "Trip is not pending"
// @Router       /api/v1/trips/{id}/approve [post]
// Approve moves a pending trip into an approved status.
// POST /api/v1/trips/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	actor, tripID, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req decideTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	trip, prev, err := h.svc.ApproveTrip(c.Request.Context(), actor, tripID, req.Status)
	if err != nil {
		respond.Error(c, err)
		return
	}

	middleware.SetAuditTransition(c, prev, trip.Status)
	h.notifyDecision(trip)
	c.JSON(http.StatusOK, trip)
}

// @Summary      Reject trip
// @Description  Move a pending trip to rejected. Location admins may only decide trips departing from their site.
// @Tags         Trips
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Trip ID"
// @Success      200  {object}  models.Trip
// @Failure      403  {object}  map[string]interface{}  "Outside admin scope"
// @Failure      404  {object}  map[string]interface{}  "Trip not found"
// @Failure      409  {object}  map[string]interface{}  "Trip is not pending"
// @Router       /api/v1/trips/{id}/reject [post]
// Reject moves a pending trip to rejected.
// POST /api/v1/trips/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	actor, tripID, ok := h.actorAndID(c)
	if !ok {
		return
	}

	trip, prev, err := h.svc.RejectTrip(c.Request.Context(), actor, tripID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	middleware.SetAuditTransition(c, prev, trip.Status)
	h.notifyDecision(trip)
	c.JSON(http.StatusOK, trip)
}

// @Summary      Cancel trip
// @Description  Withdraw an own trip that has not been optimized or claimed by a proposed group.
// @Tags         Trips
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Trip ID"
// @Success      200  {object}  models.Trip
// @Failure      403  {object}  map[string]interface{}  "Not the trip owner"
// @Failure      404  {object}  map[string]interface{}  "Trip not found"
// @Failure      409  {object}  map[string]interface{}  "Trip can no longer be cancelled"
// @Router       /api/v1/trips/{id}/cancel [post]
// Cancel withdraws the caller's own trip.
// POST /api/v1/trips/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	actor, tripID, ok := h.actorAndID(c)
	if !ok {
		return
	}

	trip, prev, err := h.svc.CancelTrip(c.Request.Context(), actor, tripID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	middleware.SetAuditTransition(c, prev, trip.Status)
	c.JSON(http.StatusOK, trip)
}

// actorAndID pulls the authenticated actor and the :id path parameter,
// writing the error response itself when either is missing.
func (h *Handlers) actorAndID(c *gin.Context) (services.Actor, uuid.UUID, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return services.Actor{}, uuid.Nil, false
	}
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return services.Actor{}, uuid.Nil, false
	}
	return actor, tripID, true
}

// notifyDecision emails the trip owner about an approval or rejection.
// Sends are fire-and-forget; a failed email never fails the request.
func (h *Handlers) notifyDecision(trip *models.Trip) {
	t := *trip
	safego.Go(func() {
		if err := notify.TripDecided(h.sender, &t); err != nil {
			h.logger.Error("trip decision email failed", "trip_id", t.ID, "error", err)
		}
	})
}

func parseTripFilters(c *gin.Context) (repositories.TripFilters, error) {
	var filters repositories.TripFilters

	if v := c.Query("status"); v != "" {
		if !models.ValidTripStatus(v) {
			return filters, &filterError{"unknown status filter"}
		}
		filters.Status = &v
	}
	if v := c.Query("data_type"); v != "" {
		switch v {
		case models.DataTypeRaw, models.DataTypeTemp, models.DataTypeFinal:
			filters.DataType = &v
		default:
			return filters, &filterError{"unknown data_type filter"}
		}
	}
	if v := c.Query("departure_location_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, &filterError{"invalid departure_location_id filter"}
		}
		filters.DepartureLocationID = &id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, &filterError{"invalid from filter, want RFC3339"}
		}
		filters.DepartureAfter = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, &filterError{"invalid to filter, want RFC3339"}
		}
		filters.DepartureBefore = &t
	}
	return filters, nil
}

type filterError struct{ msg string }

func (e *filterError) Error() string { return e.msg }

// pagination reads limit/offset query parameters with sane bounds.
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
