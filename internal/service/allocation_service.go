package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/dto"
	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type allocationPlanRepo interface {
	FindByID(ctx context.Context, id string) (*models.AllocationPlan, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AllocationPlan, error)
}

type allocationYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type allocationDemandReader interface {
	ListByYearOrdered(ctx context.Context, exec sqlx.ExtContext, yearID string) ([]models.InternshipDemand, error)
}

type allocationPoolLoader interface {
	LoadYearPool(ctx context.Context, exec sqlx.ExtContext, yearID string) (*models.TeacherPool, error)
}

type allocationZoneLoader interface {
	LoadRuleSet(ctx context.Context, exec sqlx.ExtContext) (models.ZoneRuleSet, error)
}

type allocationAssignmentStore interface {
	ListActiveByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.TeacherAssignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error
}

type allocationCreditReader interface {
	AllocatedHoursByYear(ctx context.Context, exec sqlx.ExtContext, yearID string) (map[string]int, error)
}

type allocationRecalculator interface {
	RecalculateExec(ctx context.Context, exec sqlx.ExtContext, teacherID, yearID string) (*models.CreditHourTracking, error)
}

type allocationObserver interface {
	ObserveAllocation(assignmentsCreated, unmetDemands int)
	ObserveDBQuery(query string, duration time.Duration)
}

// candidate pairs an eligible teacher with its running allocated hours for
// selection ordering.
type candidate struct {
	teacherID      string
	allocatedHours int
}

// selectionLess is the fairness policy for picking teachers within a demand.
// It is the single swap point for the ordering: lowest allocated credit hours
// first, teacher ID ascending on ties.
type selectionLess func(a, b candidate) bool

func leastLoadedFirst(a, b candidate) bool {
	if a.allocatedHours != b.allocatedHours {
		return a.allocatedHours < b.allocatedHours
	}
	return a.teacherID < b.teacherID
}

// AllocationService is the matching engine. One Allocate call is one bounded
// unit of work inside a single database transaction: either every demand is
// processed and all assignment and ledger writes commit, or nothing does.
type AllocationService struct {
	plans            allocationPlanRepo
	years            allocationYearReader
	demands          allocationDemandReader
	teachers         allocationPoolLoader
	zones            allocationZoneLoader
	assignments      allocationAssignmentStore
	creditHours      allocationCreditReader
	recalculator     allocationRecalculator
	changeLog        changeLogWriter
	filter           *EligibilityFilter
	tx               txBeginner
	metrics          allocationObserver
	less             selectionLess
	defaultGroupSize int
	logger           *zap.Logger
}

// NewAllocationService wires the matching engine.
func NewAllocationService(
	plans allocationPlanRepo,
	years allocationYearReader,
	demands allocationDemandReader,
	teachers allocationPoolLoader,
	zones allocationZoneLoader,
	assignments allocationAssignmentStore,
	creditHours allocationCreditReader,
	recalculator allocationRecalculator,
	changeLog changeLogWriter,
	tx txBeginner,
	metrics allocationObserver,
	defaultGroupSize int,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultGroupSize <= 0 {
		defaultGroupSize = 1
	}
	return &AllocationService{
		plans:            plans,
		years:            years,
		demands:          demands,
		teachers:         teachers,
		zones:            zones,
		assignments:      assignments,
		creditHours:      creditHours,
		recalculator:     recalculator,
		changeLog:        changeLog,
		filter:           NewEligibilityFilter(),
		tx:               tx,
		metrics:          metrics,
		less:             leastLoadedFirst,
		defaultGroupSize: defaultGroupSize,
		logger:           logger,
	}
}

// Allocate runs the matching engine over every demand of the plan's year.
// Re-running fills only still-unmet requirements: teachers already holding a
// live assignment for the same (plan, type, subject) are excluded up front.
func (s *AllocationService) Allocate(ctx context.Context, planID, actor string) (*dto.AllocationResult, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "cannot allocate against an archived plan")
	}

	year, err := s.years.FindByID(ctx, plan.AcademicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
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

	result, err := s.allocateTx(ctx, tx, plan, year, actor)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation run")
	}

	if s.metrics != nil {
		s.metrics.ObserveAllocation(result.AssignmentsCreated, len(result.Unmet))
	}
	s.logger.Info("allocation run finished",
		zap.String("plan_id", plan.ID),
		zap.Int("demands", result.DemandsProcessed),
		zap.Int("created", result.AssignmentsCreated),
		zap.Int("unmet", len(result.Unmet)),
	)
	return result, nil
}

func (s *AllocationService) allocateTx(ctx context.Context, tx *sqlx.Tx, plan *models.AllocationPlan, year *models.AcademicYear, actor string) (*dto.AllocationResult, error) {
	// The row lock serializes concurrent runs on the same plan so no two
	// runs can race past the duplicate-tuple check.
	locked, err := s.plans.FindByIDForUpdate(ctx, tx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock plan")
	}
	if locked.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "cannot allocate against an archived plan")
	}

	start := time.Now()
	demands, err := s.demands.ListByYearOrdered(ctx, tx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demands")
	}
	s.observeQuery("demands_by_year", start)

	start = time.Now()
	pool, err := s.teachers.LoadYearPool(ctx, tx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher pool")
	}
	s.observeQuery("teacher_pool", start)

	zones, err := s.zones.LoadRuleSet(ctx, tx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load zone constraints")
	}
	hours, err := s.creditHours.AllocatedHoursByYear(ctx, tx, year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocated hours")
	}

	start = time.Now()
	existing, err := s.assignments.ListActiveByPlan(ctx, tx, plan.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing assignments")
	}
	s.observeQuery("active_assignments", start)

	// Pre-existing fills are consumed across same-tuple demands in processing
	// order. Assignments created during this run never count against a
	// sibling demand that shares the (type, subject) pair.
	taken := make(map[string]struct{}, len(existing))
	preexisting := make(map[string]int, len(existing))
	for _, a := range existing {
		taken[tupleKey(a.TeacherID, a.InternshipTypeID, a.SubjectID)] = struct{}{}
		preexisting[demandKey(a.InternshipTypeID, a.SubjectID)]++
	}

	result := &dto.AllocationResult{PlanID: plan.ID, AcademicYearID: year.ID}
	touched := make(map[string]struct{})

	for _, demand := range demands {
		result.DemandsProcessed++

		eligible := s.filter.EligibleTeachers(demand, pool, zones)
		candidates := make([]candidate, 0, len(eligible))
		for _, id := range eligible {
			if _, ok := taken[tupleKey(id, demand.InternshipTypeID, demand.SubjectID)]; ok {
				continue
			}
			candidates = append(candidates, candidate{teacherID: id, allocatedHours: hours[id]})
		}
		sort.Slice(candidates, func(i, j int) bool { return s.less(candidates[i], candidates[j]) })

		// Re-runs only fill the remaining gap of a demand. Each demand draws
		// from the shared pre-existing count at most its own requirement.
		key := demandKey(demand.InternshipTypeID, demand.SubjectID)
		already := preexisting[key]
		if already > demand.RequiredTeachers {
			already = demand.RequiredTeachers
		}
		preexisting[key] -= already

		needed := demand.RequiredTeachers - already
		if needed > len(candidates) {
			needed = len(candidates)
		}

		for _, pick := range candidates[:needed] {
			assignment := &models.TeacherAssignment{
				PlanID:           plan.ID,
				TeacherID:        pick.teacherID,
				InternshipTypeID: demand.InternshipTypeID,
				SubjectID:        demand.SubjectID,
				StudentGroupSize: s.defaultGroupSize,
				Status:           models.AssignmentPlanned,
			}
			if err := s.assignments.Create(ctx, tx, assignment); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
			}
			taken[tupleKey(pick.teacherID, demand.InternshipTypeID, demand.SubjectID)] = struct{}{}
			hours[pick.teacherID] += year.HoursPerAssignment(pool.Teachers[pick.teacherID].SchoolType)
			touched[pick.teacherID] = struct{}{}
			result.AssignmentsCreated++
		}

		if already+needed < demand.RequiredTeachers {
			result.Unmet = append(result.Unmet, dto.UnmetDemand{
				DemandID:         demand.ID,
				InternshipTypeID: demand.InternshipTypeID,
				SubjectID:        demand.SubjectID,
				Required:         demand.RequiredTeachers,
				Assigned:         already + needed,
			})
		}
	}

	// One recalculation per touched teacher, inside the same transaction.
	for teacherID := range touched {
		if _, err := s.recalculator.RecalculateExec(ctx, tx, teacherID, year.ID); err != nil {
			return nil, err
		}
	}
	result.TeachersTouched = len(touched)

	summary, _ := json.Marshal(result)
	entry := &models.PlanChangeLog{
		ChangeType: models.ChangeTypeUpdate,
		EntityType: models.EntityPlan,
		EntityID:   plan.ID,
		NewValues:  summary,
		Actor:      actor,
	}
	if err := s.changeLog.Create(ctx, tx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write allocation change log")
	}

	return result, nil
}

func (s *AllocationService) observeQuery(name string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(name, time.Since(start))
	}
}

func tupleKey(teacherID, internshipTypeID, subjectID string) string {
	return teacherID + "|" + internshipTypeID + "|" + subjectID
}

func demandKey(internshipTypeID, subjectID string) string {
	return internshipTypeID + "|" + subjectID
}
