package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/models"
	"github.com/praktika-dev/praktika-api/internal/service"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
	"github.com/praktika-dev/praktika-api/pkg/response"
)

// DemandHandler wires internship demand management to HTTP routes.
type DemandHandler struct {
	demands *service.DemandService
}

// NewDemandHandler constructs a new DemandHandler.
func NewDemandHandler(demands *service.DemandService) *DemandHandler {
	return &DemandHandler{demands: demands}
}

// List godoc
// @Summary List internship demands
// @Tags Demands
// @Produce json
// @Param academic_year_id query string false "Filter by academic year"
// @Param internship_type_id query string false "Filter by internship type"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /demands [get]
func (h *DemandHandler) List(c *gin.Context) {
	filter := models.DemandFilter{
		AcademicYearID:   c.Query("academic_year_id"),
		InternshipTypeID: c.Query("internship_type_id"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	demands, pagination, err := h.demands.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, demands, pagination)
}

// Get godoc
// @Summary Get demand detail
// @Tags Demands
// @Produce json
// @Param id path string true "Demand ID"
// @Success 200 {object} response.Envelope
// @Router /demands/{id} [get]
func (h *DemandHandler) Get(c *gin.Context) {
	demand, err := h.demands.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, demand, nil)
}

// Create godoc
// @Summary Create demand
// @Tags Demands
// @Accept json
// @Produce json
// @Param payload body service.CreateDemandRequest true "Demand payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /demands [post]
func (h *DemandHandler) Create(c *gin.Context) {
	var req service.CreateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid demand payload"))
		return
	}
	demand, err := h.demands.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, demand)
}

// Update godoc
// @Summary Update demand
// @Tags Demands
// @Accept json
// @Produce json
// @Param id path string true "Demand ID"
// @Param payload body service.UpdateDemandRequest true "Demand payload"
// @Success 200 {object} response.Envelope
// @Router /demands/{id} [put]
func (h *DemandHandler) Update(c *gin.Context) {
	var req service.UpdateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid demand payload"))
		return
	}
	demand, err := h.demands.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, demand, nil)
}

// Delete godoc
// @Summary Delete demand
// @Tags Demands
// @Param id path string true "Demand ID"
// @Success 204
// @Router /demands/{id} [delete]
func (h *DemandHandler) Delete(c *gin.Context) {
	if err := h.demands.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
