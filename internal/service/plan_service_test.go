package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

func TestPlanCreateRejectsDuplicateVersion(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusDraft})

	_, err := fx.service.Create(context.Background(), CreatePlanRequest{
		AcademicYearID: "year-1",
		Name:           "Second try",
		Version:        "v1",
	}, "tester")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicatePlanVersion.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fx.mock.ExpectationsWereMet(), "no transaction may start for a rejected create")
}

func TestPlanCreateAsCurrentDisplacesSibling(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusApproved, IsCurrent: true})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	plan, err := fx.service.Create(context.Background(), CreatePlanRequest{
		AcademicYearID: "year-1",
		Name:           "Revision",
		Version:        "v2",
		IsCurrent:      true,
	}, "tester")
	require.NoError(t, err)

	assert.True(t, plan.IsCurrent)
	assert.Equal(t, models.PlanStatusDraft, plan.Status)
	assert.False(t, fx.store.plans["plan-1"].IsCurrent, "previous current flag must be cleared")
	require.Len(t, fx.changeLog.entries, 1)
	assert.Equal(t, models.ChangeTypeCreate, fx.changeLog.entries[0].ChangeType)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanChangeStatusForwardOnly(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusApproved})

	_, err := fx.service.ChangeStatus(context.Background(), "plan-1", models.PlanStatusDraft, "tester")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.PlanStatusApproved, fx.store.plans["plan-1"].Status)
}

func TestPlanChangeStatusAllowsForwardJump(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusDraft})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	plan, err := fx.service.ChangeStatus(context.Background(), "plan-1", models.PlanStatusApproved, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusApproved, plan.Status)
	require.Len(t, fx.changeLog.entries, 1)
	assert.Equal(t, models.ChangeTypeStatusChange, fx.changeLog.entries[0].ChangeType)
	assert.NoError(t, fx.mock.ExpectationsWereMet(), "status change and change log share one transaction")
}

func TestPlanChangeStatusFailsWhenChangeLogFails(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusDraft})
	fx.changeLog.err = fmt.Errorf("log table unavailable")

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.ChangeStatus(context.Background(), "plan-1", models.PlanStatusApproved, "tester")
	require.Error(t, err, "a lost audit entry must abort the mutation")
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanUpdateWritesChangeLogInTransaction(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusDraft, Name: "Original"})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	plan, err := fx.service.Update(context.Background(), "plan-1", UpdatePlanRequest{Name: "Renamed"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", plan.Name)
	require.Len(t, fx.changeLog.entries, 1)
	assert.Equal(t, models.ChangeTypeUpdate, fx.changeLog.entries[0].ChangeType)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanArchiveDropsCurrentFlag(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusApproved, IsCurrent: true})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	plan, err := fx.service.Archive(context.Background(), "plan-1", "tester")
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusArchived, plan.Status)
	assert.False(t, plan.IsCurrent)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanArchivedIsImmutable(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusArchived})

	_, err := fx.service.Update(context.Background(), "plan-1", UpdatePlanRequest{Name: "rename"}, "tester")
	assert.Equal(t, appErrors.ErrPlanArchived.Code, appErrors.FromError(err).Code)

	_, err = fx.service.ChangeStatus(context.Background(), "plan-1", models.PlanStatusApproved, "tester")
	assert.Equal(t, appErrors.ErrPlanArchived.Code, appErrors.FromError(err).Code)

	_, err = fx.service.SetCurrent(context.Background(), "plan-1", "tester")
	assert.Equal(t, appErrors.ErrPlanArchived.Code, appErrors.FromError(err).Code)
}

func TestPlanSetCurrentIsExclusive(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusApproved, IsCurrent: true})
	fx.store.add(&models.AllocationPlan{ID: "plan-2", AcademicYearID: "year-1", Version: "v2", Status: models.PlanStatusDraft})

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	plan, err := fx.service.SetCurrent(context.Background(), "plan-2", "tester")
	require.NoError(t, err)

	assert.True(t, plan.IsCurrent)
	assert.False(t, fx.store.plans["plan-1"].IsCurrent)
	assert.True(t, fx.store.plans["plan-2"].IsCurrent)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanGetCurrentForYearUsesCache(t *testing.T) {
	fx := newPlanFixture(t)
	fx.store.add(&models.AllocationPlan{ID: "plan-1", AcademicYearID: "year-1", Version: "v1", Status: models.PlanStatusApproved, IsCurrent: true})

	first, err := fx.service.GetCurrentForYear(context.Background(), "year-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-1", first.ID)
	assert.Contains(t, fx.cache.store, "plans:current:year-1")

	// Remove the backing row; the cached copy must still serve.
	delete(fx.store.plans, "plan-1")
	second, err := fx.service.GetCurrentForYear(context.Background(), "year-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-1", second.ID)
}

// --- Fixtures ---

type planFixture struct {
	service   *PlanService
	store     *planStoreStub
	changeLog *changeLogStub
	cache     *cacheStub
	mock      sqlmock.Sqlmock
}

func newPlanFixture(t *testing.T) *planFixture {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })

	fx := &planFixture{
		store:     &planStoreStub{plans: map[string]*models.AllocationPlan{}},
		changeLog: &changeLogStub{},
		cache:     &cacheStub{store: map[string][]byte{}},
		mock:      mock,
	}
	fx.service = NewPlanService(
		fx.store,
		yearReaderStub{year: &models.AcademicYear{ID: "year-1", TotalCreditHours: 60, ElementarySchoolHours: 6, MiddleSchoolHours: 4}},
		fx.changeLog,
		fx.cache,
		sqlxdb,
		time.Minute,
		nil,
		zap.NewNop(),
	)
	return fx
}

type planStoreStub struct {
	plans map[string]*models.AllocationPlan
	seq   int
}

func (s *planStoreStub) add(plan *models.AllocationPlan) {
	s.plans[plan.ID] = plan
}

func (s *planStoreStub) List(ctx context.Context, filter models.PlanFilter) ([]models.AllocationPlan, int, error) {
	out := make([]models.AllocationPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *planStoreStub) FindByID(ctx context.Context, id string) (*models.AllocationPlan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (s *planStoreStub) FindCurrentByYear(ctx context.Context, yearID string) (*models.AllocationPlan, error) {
	for _, p := range s.plans {
		if p.AcademicYearID == yearID && p.IsCurrent {
			clone := *p
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *planStoreStub) ExistsByYearAndVersion(ctx context.Context, yearID, version string) (bool, error) {
	for _, p := range s.plans {
		if p.AcademicYearID == yearID && p.Version == version {
			return true, nil
		}
	}
	return false, nil
}

func (s *planStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error {
	s.seq++
	plan.ID = fmt.Sprintf("plan-new-%d", s.seq)
	clone := *plan
	s.plans[plan.ID] = &clone
	return nil
}

func (s *planStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error {
	if _, ok := s.plans[plan.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *plan
	s.plans[plan.ID] = &clone
	return nil
}

func (s *planStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PlanStatus) error {
	p, ok := s.plans[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = status
	if status == models.PlanStatusArchived {
		p.IsCurrent = false
	}
	return nil
}

func (s *planStoreStub) SetCurrent(ctx context.Context, exec sqlx.ExtContext, yearID, planID string) error {
	for _, p := range s.plans {
		if p.AcademicYearID == yearID {
			p.IsCurrent = p.ID == planID
		}
	}
	return nil
}

type cacheStub struct {
	store map[string][]byte
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.store, key)
	}
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.store {
		if strings.HasPrefix(key, prefix) {
			delete(c.store, key)
		}
	}
	return nil
}
