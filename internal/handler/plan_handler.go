package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/models"
	"github.com/praktika-dev/praktika-api/internal/service"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
	"github.com/praktika-dev/praktika-api/pkg/response"
)

// PlanHandler wires allocation plan lifecycle endpoints.
type PlanHandler struct {
	plans      *service.PlanService
	allocation *service.AllocationService
	exports    *service.ExportService
}

// NewPlanHandler constructs a new PlanHandler.
func NewPlanHandler(plans *service.PlanService, allocation *service.AllocationService, exports *service.ExportService) *PlanHandler {
	return &PlanHandler{plans: plans, allocation: allocation, exports: exports}
}

// List godoc
// @Summary List allocation plans
// @Tags Plans
// @Produce json
// @Param academic_year_id query string false "Filter by academic year"
// @Param status query string false "Filter by status (DRAFT,IN_REVIEW,APPROVED,ARCHIVED)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	filter := models.PlanFilter{
		AcademicYearID: c.Query("academic_year_id"),
		Status:         models.PlanStatus(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	plans, pagination, err := h.plans.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, pagination)
}

// Get godoc
// @Summary Get plan detail
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Create godoc
// @Summary Create allocation plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body service.CreatePlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Update godoc
// @Summary Update plan metadata
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body service.UpdatePlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Router /plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	var req service.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.plans.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// ChangeStatus godoc
// @Summary Move plan to a later lifecycle status
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body object{status=string} true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/status [patch]
func (h *PlanHandler) ChangeStatus(c *gin.Context) {
	var payload struct {
		Status models.PlanStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	plan, err := h.plans.ChangeStatus(c.Request.Context(), c.Param("id"), payload.Status, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Archive godoc
// @Summary Archive a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/archive [post]
func (h *PlanHandler) Archive(c *gin.Context) {
	plan, err := h.plans.Archive(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// SetCurrent godoc
// @Summary Mark a plan as the current plan of its academic year
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/current [post]
func (h *PlanHandler) SetCurrent(c *gin.Context) {
	plan, err := h.plans.SetCurrent(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// CurrentForYear godoc
// @Summary Get the current plan of an academic year
// @Tags Plans
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/{id}/current-plan [get]
func (h *PlanHandler) CurrentForYear(c *gin.Context) {
	plan, err := h.plans.GetCurrentForYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Allocate godoc
// @Summary Run the allocation engine for a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/{id}/allocate [post]
func (h *PlanHandler) Allocate(c *gin.Context) {
	result, err := h.allocation.Allocate(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a plan as CSV or PDF
// @Tags Plans
// @Produce octet-stream
// @Param id path string true "Plan ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /plans/{id}/export [get]
func (h *PlanHandler) Export(c *gin.Context) {
	report, err := h.exports.RenderPlan(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
