package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

func TestUpdateYearPersistsAndInvalidatesOnBudgetChange(t *testing.T) {
	fx := newReferenceFixture(t)

	year, err := fx.service.UpdateYear(context.Background(), "year-1", UpdateYearRequest{
		Name:                  "2026/2027",
		TotalCreditHours:      72,
		ElementarySchoolHours: 6,
		MiddleSchoolHours:     4,
	})
	require.NoError(t, err)

	assert.Equal(t, 72, year.TotalCreditHours)
	assert.Equal(t, 72, fx.years.years["year-1"].TotalCreditHours)
	assert.Equal(t, []string{"year-1"}, fx.credits.invalidated,
		"changed budget must drop the year's cached ledger rows")
}

func TestUpdateYearSkipsInvalidationWhenBudgetsUnchanged(t *testing.T) {
	fx := newReferenceFixture(t)

	_, err := fx.service.UpdateYear(context.Background(), "year-1", UpdateYearRequest{
		Name:                  "2026/2027 (renamed)",
		TotalCreditHours:      60,
		ElementarySchoolHours: 6,
		MiddleSchoolHours:     4,
	})
	require.NoError(t, err)

	assert.Equal(t, "2026/2027 (renamed)", fx.years.years["year-1"].Name)
	assert.Empty(t, fx.credits.invalidated, "rename alone leaves cached balances valid")
}

func TestUpdateYearRejectsInvalidPayload(t *testing.T) {
	fx := newReferenceFixture(t)

	_, err := fx.service.UpdateYear(context.Background(), "year-1", UpdateYearRequest{
		Name:             "",
		TotalCreditHours: 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.credits.invalidated)
}

func TestUpdateYearUnknownIDReturnsNotFound(t *testing.T) {
	fx := newReferenceFixture(t)

	_, err := fx.service.UpdateYear(context.Background(), "year-9", UpdateYearRequest{
		Name:                  "ghost",
		TotalCreditHours:      60,
		ElementarySchoolHours: 6,
		MiddleSchoolHours:     4,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type referenceFixture struct {
	service *ReferenceService
	years   *yearStoreStub
	credits *creditInvalidatorStub
}

func newReferenceFixture(t *testing.T) *referenceFixture {
	fx := &referenceFixture{
		years: &yearStoreStub{years: map[string]*models.AcademicYear{
			"year-1": {ID: "year-1", Name: "2026/2027", TotalCreditHours: 60, ElementarySchoolHours: 6, MiddleSchoolHours: 4},
		}},
		credits: &creditInvalidatorStub{},
	}
	fx.service = NewReferenceService(fx.years, nil, nil, nil, nil, fx.credits, nil, zap.NewNop())
	return fx
}

type yearStoreStub struct {
	years map[string]*models.AcademicYear
}

func (s *yearStoreStub) List(ctx context.Context) ([]models.AcademicYear, error) {
	out := make([]models.AcademicYear, 0, len(s.years))
	for _, y := range s.years {
		out = append(out, *y)
	}
	return out, nil
}

func (s *yearStoreStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	y, ok := s.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *y
	return &clone, nil
}

func (s *yearStoreStub) Create(ctx context.Context, year *models.AcademicYear) error {
	clone := *year
	s.years[year.ID] = &clone
	return nil
}

func (s *yearStoreStub) Update(ctx context.Context, year *models.AcademicYear) error {
	if _, ok := s.years[year.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *year
	s.years[year.ID] = &clone
	return nil
}

func (s *yearStoreStub) SetLocked(ctx context.Context, id string, locked bool) error {
	y, ok := s.years[id]
	if !ok {
		return sql.ErrNoRows
	}
	y.IsLocked = locked
	return nil
}

type creditInvalidatorStub struct {
	invalidated []string
}

func (s *creditInvalidatorStub) InvalidateYear(ctx context.Context, yearID string) error {
	s.invalidated = append(s.invalidated, yearID)
	return nil
}
