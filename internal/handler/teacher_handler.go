package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/models"
	"github.com/praktika-dev/praktika-api/internal/service"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
	"github.com/praktika-dev/praktika-api/pkg/response"
)

// TeacherHandler wires teacher reads and availability submission to HTTP routes.
type TeacherHandler struct {
	teachers *service.TeacherService
	credits  *service.CreditHourService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(teachers *service.TeacherService, credits *service.CreditHourService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, credits: credits}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param search query string false "Search by name or email"
// @Param school_id query string false "Filter by school"
// @Param status query string false "Filter by employment status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter := models.TeacherFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		SchoolID: c.Query("school_id"),
		Status:   models.EmploymentStatus(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	teachers, pagination, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get teacher detail
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Qualifications godoc
// @Summary List teacher subject qualifications
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/qualifications [get]
func (h *TeacherHandler) Qualifications(c *gin.Context) {
	qualifications, err := h.teachers.ListQualifications(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualifications, nil)
}

// Availabilities godoc
// @Summary List teacher availability declarations
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academic_year_id query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availabilities [get]
func (h *TeacherHandler) Availabilities(c *gin.Context) {
	availabilities, err := h.teachers.ListAvailabilities(c.Request.Context(), c.Param("id"), c.Query("academic_year_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availabilities, nil)
}

// SubmitAvailability godoc
// @Summary Submit or update availability for an internship type
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.SubmitAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/{id}/availabilities [put]
func (h *TeacherHandler) SubmitAvailability(c *gin.Context) {
	var req service.SubmitAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	availability, err := h.teachers.SubmitAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// CreditHours godoc
// @Summary Get teacher credit-hour tracking for a year
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academic_year_id query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/credit-hours [get]
func (h *TeacherHandler) CreditHours(c *gin.Context) {
	yearID := c.Query("academic_year_id")
	if yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academic_year_id is required"))
		return
	}
	tracking, err := h.credits.GetForTeacherAndYear(c.Request.Context(), c.Param("id"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tracking, nil)
}

// RecalculateCreditHours godoc
// @Summary Recompute teacher credit hours from the assignment ledger
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academic_year_id query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/credit-hours/recalculate [post]
func (h *TeacherHandler) RecalculateCreditHours(c *gin.Context) {
	yearID := c.Query("academic_year_id")
	if yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academic_year_id is required"))
		return
	}
	tracking, err := h.credits.Recalculate(c.Request.Context(), c.Param("id"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tracking, nil)
}
