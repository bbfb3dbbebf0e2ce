package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type planRepository interface {
	List(ctx context.Context, filter models.PlanFilter) ([]models.AllocationPlan, int, error)
	FindByID(ctx context.Context, id string) (*models.AllocationPlan, error)
	FindCurrentByYear(ctx context.Context, yearID string) (*models.AllocationPlan, error)
	ExistsByYearAndVersion(ctx context.Context, yearID, version string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error
	Update(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PlanStatus) error
	SetCurrent(ctx context.Context, exec sqlx.ExtContext, yearID, planID string) error
}

type planYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type changeLogWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.PlanChangeLog) error
}

type planCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CreatePlanRequest describes the payload for a new allocation plan.
type CreatePlanRequest struct {
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Version        string  `json:"version" validate:"required"`
	IsCurrent      bool    `json:"is_current"`
	Notes          *string `json:"notes"`
}

// UpdatePlanRequest rewrites mutable plan fields.
type UpdatePlanRequest struct {
	Name  string  `json:"name" validate:"required"`
	Notes *string `json:"notes"`
}

// PlanService owns the allocation plan lifecycle and the single-current-plan
// invariant.
type PlanService struct {
	plans     planRepository
	years     planYearReader
	changeLog changeLogWriter
	cache     planCache
	tx        txBeginner
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlanService constructs the service.
func NewPlanService(
	plans planRepository,
	years planYearReader,
	changeLog changeLogWriter,
	cache planCache,
	tx txBeginner,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PlanService{
		plans:     plans,
		years:     years,
		changeLog: changeLog,
		cache:     cache,
		tx:        tx,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// List returns paginated plans.
func (s *PlanService) List(ctx context.Context, filter models.PlanFilter) ([]models.AllocationPlan, *models.Pagination, error) {
	plans, total, err := s.plans.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return plans, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one plan.
func (s *PlanService) Get(ctx context.Context, id string) (*models.AllocationPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return plan, nil
}

// Create registers a new plan. When IsCurrent is requested, the sibling
// current flags are cleared in the same transaction as the insert, so there
// is never a window with zero or two current plans.
func (s *PlanService) Create(ctx context.Context, req CreatePlanRequest, actor string) (*models.AllocationPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	if _, err := s.years.FindByID(ctx, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	exists, err := s.plans.ExistsByYearAndVersion(ctx, req.AcademicYearID, req.Version)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check plan version")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePlanVersion, "")
	}

	plan := &models.AllocationPlan{
		AcademicYearID: req.AcademicYearID,
		Name:           req.Name,
		Version:        req.Version,
		Status:         models.PlanStatusDraft,
		IsCurrent:      req.IsCurrent,
		Notes:          req.Notes,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.plans.Create(ctx, tx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan")
	}
	if req.IsCurrent {
		if err = s.plans.SetCurrent(ctx, tx, plan.AcademicYearID, plan.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current plan")
		}
	}
	if err = s.writeChangeLog(ctx, tx, models.ChangeTypeCreate, plan.ID, nil, plan, actor); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan")
	}

	s.invalidateCurrentPlanCache(ctx, plan.AcademicYearID)
	s.logger.Info("plan created",
		zap.String("plan_id", plan.ID),
		zap.String("year_id", plan.AcademicYearID),
		zap.String("version", plan.Version),
		zap.Bool("is_current", plan.IsCurrent),
	)
	return plan, nil
}

// Update rewrites name and notes. Archived plans reject every mutation.
func (s *PlanService) Update(ctx context.Context, id string, req UpdatePlanRequest, actor string) (*models.AllocationPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}

	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "")
	}

	before := *plan
	plan.Name = req.Name
	plan.Notes = req.Notes

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.plans.Update(ctx, tx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update plan")
	}
	if err = s.writeChangeLog(ctx, tx, models.ChangeTypeUpdate, plan.ID, &before, plan, actor); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan update")
	}
	return plan, nil
}

// ChangeStatus moves the plan forward through the lifecycle.
func (s *PlanService) ChangeStatus(ctx context.Context, id string, next models.PlanStatus, actor string) (*models.AllocationPlan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "")
	}
	if !plan.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move plan from %s to %s", plan.Status, next))
	}

	before := *plan

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.plans.UpdateStatus(ctx, tx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change plan status")
	}
	plan.Status = next
	if next == models.PlanStatusArchived {
		plan.IsCurrent = false
	}
	if err = s.writeChangeLog(ctx, tx, models.ChangeTypeStatusChange, plan.ID, &before, plan, actor); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan status change")
	}

	if next == models.PlanStatusArchived {
		s.invalidateCurrentPlanCache(ctx, plan.AcademicYearID)
	}
	s.logger.Info("plan status changed",
		zap.String("plan_id", plan.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(next)),
	)
	return plan, nil
}

// Archive is shorthand for the terminal status change.
func (s *PlanService) Archive(ctx context.Context, id, actor string) (*models.AllocationPlan, error) {
	return s.ChangeStatus(ctx, id, models.PlanStatusArchived, actor)
}

// SetCurrent designates the plan as the authoritative one for its year,
// atomically clearing the flag on every sibling.
func (s *PlanService) SetCurrent(ctx context.Context, id, actor string) (*models.AllocationPlan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "archived plans cannot become current")
	}

	before := *plan

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.plans.SetCurrent(ctx, tx, plan.AcademicYearID, plan.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current plan")
	}
	plan.IsCurrent = true
	if err = s.writeChangeLog(ctx, tx, models.ChangeTypeUpdate, plan.ID, &before, plan, actor); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit current plan change")
	}

	s.invalidateCurrentPlanCache(ctx, plan.AcademicYearID)
	return plan, nil
}

// GetCurrentForYear returns the year's current plan, served from cache when
// warm.
func (s *PlanService) GetCurrentForYear(ctx context.Context, yearID string) (*models.AllocationPlan, error) {
	key := currentPlanCacheKey(yearID)
	if s.cache != nil {
		var cached models.AllocationPlan
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	plan, err := s.plans.FindCurrentByYear(ctx, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current plan for this year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current plan")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, plan, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache current plan", zap.Error(err))
		}
	}
	return plan, nil
}

func (s *PlanService) writeChangeLog(ctx context.Context, exec sqlx.ExtContext, changeType, planID string, before, after *models.AllocationPlan, actor string) error {
	var oldValues, newValues []byte
	if before != nil {
		oldValues, _ = json.Marshal(before)
	}
	if after != nil {
		newValues, _ = json.Marshal(after)
	}
	entry := &models.PlanChangeLog{
		ChangeType: changeType,
		EntityType: models.EntityPlan,
		EntityID:   planID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Actor:      actor,
	}
	if err := s.changeLog.Create(ctx, exec, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write change log")
	}
	return nil
}

func (s *PlanService) invalidateCurrentPlanCache(ctx context.Context, yearID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, currentPlanCacheKey(yearID)); err != nil {
		s.logger.Warn("failed to invalidate current plan cache", zap.Error(err))
	}
}

func currentPlanCacheKey(yearID string) string {
	return "plans:current:" + yearID
}
