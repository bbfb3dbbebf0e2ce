package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/service"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
	"github.com/praktika-dev/praktika-api/pkg/response"
)

// ReferenceHandler serves academic years, schools, subjects, internship types
// and zone constraints.
type ReferenceHandler struct {
	reference *service.ReferenceService
	credits   *service.CreditHourService
}

// NewReferenceHandler constructs a new ReferenceHandler.
func NewReferenceHandler(reference *service.ReferenceService, credits *service.CreditHourService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference, credits: credits}
}

// ListYears godoc
// @Summary List academic years
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *ReferenceHandler) ListYears(c *gin.Context) {
	years, err := h.reference.ListYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// GetYear godoc
// @Summary Get academic year detail
// @Tags Reference
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [get]
func (h *ReferenceHandler) GetYear(c *gin.Context) {
	year, err := h.reference.GetYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// CreateYear godoc
// @Summary Register an academic year with its credit budgets
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.CreateYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *ReferenceHandler) CreateYear(c *gin.Context) {
	var req service.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid year payload"))
		return
	}
	year, err := h.reference.CreateYear(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// UpdateYear godoc
// @Summary Update an academic year's budgets and dates
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body service.UpdateYearRequest true "Year payload"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id} [put]
func (h *ReferenceHandler) UpdateYear(c *gin.Context) {
	var req service.UpdateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid year payload"))
		return
	}
	year, err := h.reference.UpdateYear(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetYearLocked godoc
// @Summary Lock or unlock availability and demand submissions for a year
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body object{locked=bool} true "Lock flag"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/lock [patch]
func (h *ReferenceHandler) SetYearLocked(c *gin.Context) {
	var payload struct {
		Locked *bool `json:"locked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "locked flag required"))
		return
	}
	year, err := h.reference.SetYearLocked(c.Request.Context(), c.Param("id"), *payload.Locked)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// YearCreditHours godoc
// @Summary List credit-hour tracking rows of a year
// @Tags Reference
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/credit-hours [get]
func (h *ReferenceHandler) YearCreditHours(c *gin.Context) {
	rows, err := h.credits.ListByYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ListSchools godoc
// @Summary List schools
// @Tags Reference
// @Produce json
// @Param active query bool false "Only active schools"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *ReferenceHandler) ListSchools(c *gin.Context) {
	schools, err := h.reference.ListSchools(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Reference
// @Produce json
// @Param active query bool false "Only active subjects"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *ReferenceHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.reference.ListSubjects(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListSubjectCategories godoc
// @Summary List subject categories
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects/categories [get]
func (h *ReferenceHandler) ListSubjectCategories(c *gin.Context) {
	categories, err := h.reference.ListSubjectCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// ListInternshipTypes godoc
// @Summary List internship types
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /internship-types [get]
func (h *ReferenceHandler) ListInternshipTypes(c *gin.Context) {
	types, err := h.reference.ListInternshipTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// ListZoneConstraints godoc
// @Summary List zone eligibility rules
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /zone-constraints [get]
func (h *ReferenceHandler) ListZoneConstraints(c *gin.Context) {
	zones, err := h.reference.ListZoneConstraints(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, zones, nil)
}
