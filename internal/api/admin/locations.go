// locations.go implements handlers for managing company sites. Listing is
// available to any authenticated caller (the booking form needs it); writes
// are admin-only.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// LocationHandlers handles location management
type LocationHandlers struct {
	locationRepo *repositories.LocationRepository
}

// NewLocationHandlers creates a new location handlers instance
func NewLocationHandlers(db *sql.DB) *LocationHandlers {
	return &LocationHandlers{locationRepo: repositories.NewLocationRepository(db)}
}

// @Summary      List locations
// @Description  List all company sites, ordered by code.
// @Tags         Locations
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "locations"
// @Router       /api/v1/locations [get]
// List returns all locations.
// GET /api/v1/locations
func (h *LocationHandlers) List(c *gin.Context) {
	locations, err := h.locationRepo.ListLocations(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

type locationRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

// @Summary      Create location
// @Description  Register a new company site with a unique code.
// @Tags         Locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "code, name, address (optional)"
// @Success      201  {object}  models.Location
// @Failure      409  {object}  map[string]interface{}  "Code already in use"
// @Router       /api/v1/admin/locations [post]
// Create registers a new location.
// POST /api/v1/admin/locations
func (h *LocationHandlers) Create(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.locationRepo.GetLocationByCode(c.Request.Context(), req.Code)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "location code already in use"})
		return
	}

	loc := &models.Location{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
	}
	if err := h.locationRepo.CreateLocation(c.Request.Context(), loc); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// @Summary      Update location
// @Description  Update the name or address of an existing site. The code is immutable.
// @Tags         Locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Location ID"
// @Param        body  body  object  true  "name, address"
// @Success      200  {object}  models.Location
// @Failure      404  {object}  map[string]interface{}  "Location not found"
// @Router       /api/v1/admin/locations/{id} [put]
// Update changes a location's name or address.
// PUT /api/v1/admin/locations/:id
func (h *LocationHandlers) Update(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	var req struct {
		Name    string  `json:"name" binding:"required"`
		Address *string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc, err := h.locationRepo.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}

	loc.Name = req.Name
	loc.Address = req.Address
	if err := h.locationRepo.UpdateLocation(c.Request.Context(), loc); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}
