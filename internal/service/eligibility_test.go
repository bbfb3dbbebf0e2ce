package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praktika-dev/praktika-api/internal/models"
)

func poolFixture() *models.TeacherPool {
	return &models.TeacherPool{
		Teachers: map[string]models.PoolTeacher{
			"t-1": {ID: "t-1", EmploymentStatus: models.EmploymentActive, SchoolType: models.SchoolTypePrimary, ZoneNumber: 1},
			"t-2": {ID: "t-2", EmploymentStatus: models.EmploymentActive, SchoolType: models.SchoolTypeMiddle, ZoneNumber: 1},
			"t-3": {ID: "t-3", EmploymentStatus: models.EmploymentOnLeave, SchoolType: models.SchoolTypePrimary, ZoneNumber: 1},
			"t-4": {ID: "t-4", EmploymentStatus: models.EmploymentActive, SchoolType: models.SchoolTypePrimary, ZoneNumber: 2},
		},
		Qualifications: map[string]map[string]struct{}{
			"t-1": {"math": {}},
			"t-3": {"math": {}},
			"t-4": {"math": {}},
		},
		SubjectStatus: map[string]map[string]string{
			"t-2": {"math": "AVAILABLE"},
		},
		Availability: map[string]map[string]models.PoolAvailability{
			"t-1": {"sfp": {Status: models.AvailabilityAvailable, IsAvailable: true}},
			"t-2": {"sfp": {Status: models.AvailabilityAvailable, IsAvailable: true}},
			"t-3": {"sfp": {Status: models.AvailabilityAvailable, IsAvailable: true}},
			"t-4": {"sfp": {Status: models.AvailabilityAvailable, IsAvailable: true}},
		},
	}
}

func zonesFixture() models.ZoneRuleSet {
	return models.NewZoneRuleSet([]models.ZoneConstraint{
		{ZoneNumber: 1, InternshipTypeID: "sfp", IsAllowed: true},
		{ZoneNumber: 2, InternshipTypeID: "sfp", IsAllowed: false},
	})
}

func demandFixture() models.InternshipDemand {
	return models.InternshipDemand{
		ID:               "d-1",
		AcademicYearID:   "year-1",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
		RequiredTeachers: 2,
	}
}

func TestEligibleTeachersAllGates(t *testing.T) {
	filter := NewEligibilityFilter()

	eligible := filter.EligibleTeachers(demandFixture(), poolFixture(), zonesFixture())

	// t-3 is on leave, t-4 sits in a denied zone. t-2 qualifies through the
	// year-scoped subject declaration.
	assert.Equal(t, []string{"t-1", "t-2"}, eligible)
}

func TestEligibleTeachersRequiresAvailableDeclaration(t *testing.T) {
	filter := NewEligibilityFilter()
	pool := poolFixture()
	pool.Availability["t-1"]["sfp"] = models.PoolAvailability{Status: models.AvailabilityTentative, IsAvailable: true}
	pool.Availability["t-2"]["sfp"] = models.PoolAvailability{Status: models.AvailabilityAvailable, IsAvailable: false}

	eligible := filter.EligibleTeachers(demandFixture(), pool, zonesFixture())

	assert.Empty(t, eligible, "TENTATIVE status and cleared is_available flag both exclude")
}

func TestEligibleTeachersMissingDeclarationExcludes(t *testing.T) {
	filter := NewEligibilityFilter()
	pool := poolFixture()
	delete(pool.Availability, "t-1")
	delete(pool.Availability["t-2"], "sfp")

	eligible := filter.EligibleTeachers(demandFixture(), pool, zonesFixture())

	assert.Empty(t, eligible)
}

func TestEligibleTeachersSubjectChannels(t *testing.T) {
	filter := NewEligibilityFilter()
	pool := poolFixture()

	// Neither channel: no qualification row, declaration not AVAILABLE.
	delete(pool.Qualifications, "t-1")
	pool.SubjectStatus["t-2"]["math"] = "UNAVAILABLE"

	eligible := filter.EligibleTeachers(demandFixture(), pool, zonesFixture())
	assert.Empty(t, eligible)

	// Restoring either channel restores eligibility.
	pool.SubjectStatus["t-1"] = map[string]string{"math": "AVAILABLE"}
	eligible = filter.EligibleTeachers(demandFixture(), pool, zonesFixture())
	assert.Equal(t, []string{"t-1"}, eligible)
}

func TestEligibleTeachersZoneClosedWorld(t *testing.T) {
	filter := NewEligibilityFilter()
	demand := demandFixture()
	demand.InternshipTypeID = "ktp"
	pool := poolFixture()
	for id := range pool.Availability {
		pool.Availability[id]["ktp"] = models.PoolAvailability{Status: models.AvailabilityAvailable, IsAvailable: true}
	}

	// No zone rows exist for "ktp", so every zone is denied.
	eligible := filter.EligibleTeachers(demand, pool, zonesFixture())

	assert.Empty(t, eligible)
}
