package handlers

import (
	"net/http"
	"strconv"

	"clausewise-backend/apperr"
	"clausewise-backend/models"
	"clausewise-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LawyerHandler handles HTTP requests for lawyer search and location
type LawyerHandler struct {
	lawyers *service.LawyerService
	logger  *zap.Logger
}

// NewLawyerHandler creates a new lawyer handler
func NewLawyerHandler(lawyers *service.LawyerService, logger *zap.Logger) *LawyerHandler {
	return &LawyerHandler{lawyers: lawyers, logger: logger}
}

// RegisterRoutes attaches the lawyer and location routes
func (h *LawyerHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/lawyers/search", h.Search)
	api.GET("/lawyers/nearby", h.Nearby)
	api.GET("/lawyers/city", h.InCity)
	api.GET("/location/approximate", h.ApproximateLocation)
	api.GET("/location/geocode", h.Geocode)
}

// Search handles POST /api/lawyers/search
func (h *LawyerHandler) Search(c *gin.Context) {
	var req service.LawyerSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}

	result, err := h.lawyers.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// Nearby handles GET /api/lawyers/nearby?lat=..&lng=..
func (h *LawyerHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondError(c, h.logger, apperr.InvalidInput("nearby lawyers", "lat and lng must be numbers"))
		return
	}

	lawyers, err := h.lawyers.FindNearby(c.Request.Context(), models.Coordinates{Lat: lat, Lng: lng})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, lawyers)
}

// InCity handles GET /api/lawyers/city?name=..
func (h *LawyerHandler) InCity(c *gin.Context) {
	result, err := h.lawyers.FindInCity(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ApproximateLocation handles GET /api/location/approximate
func (h *LawyerHandler) ApproximateLocation(c *gin.Context) {
	at, err := h.lawyers.ApproximateLocation(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, at)
}

// Geocode handles GET /api/location/geocode?city=..
func (h *LawyerHandler) Geocode(c *gin.Context) {
	at, err := h.lawyers.CityCoordinates(c.Request.Context(), c.Query("city"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, at)
}
