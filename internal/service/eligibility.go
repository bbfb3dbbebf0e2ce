package service

import (
	"sort"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// EligibilityFilter decides which teachers qualify for a demand. It is a pure
// computation over the pre-joined year pool and zone rule set; it never
// touches storage.
type EligibilityFilter struct{}

// NewEligibilityFilter constructs the filter.
func NewEligibilityFilter() *EligibilityFilter {
	return &EligibilityFilter{}
}

// EligibleTeachers returns the IDs of teachers eligible for the demand,
// sorted ascending for deterministic downstream selection. A teacher passes
// only if every gate holds:
//  1. employment status ACTIVE
//  2. a standing qualification for the subject, or a year-scoped
//     TeacherSubject declaration with AVAILABLE status
//  3. an AVAILABLE availability declaration for the internship type
//  4. the home-school zone is allowed for the internship type (no zone row
//     means the zone is closed)
func (f *EligibilityFilter) EligibleTeachers(demand models.InternshipDemand, pool *models.TeacherPool, zones models.ZoneRuleSet) []string {
	eligible := make([]string, 0, len(pool.Teachers))
	for id, teacher := range pool.Teachers {
		if teacher.EmploymentStatus != models.EmploymentActive {
			continue
		}
		if !f.subjectQualified(id, demand.SubjectID, pool) {
			continue
		}
		av, ok := pool.Availability[id][demand.InternshipTypeID]
		if !ok || !av.IsAvailable || av.Status != models.AvailabilityAvailable {
			continue
		}
		if !zones.Allowed(teacher.ZoneNumber, demand.InternshipTypeID) {
			continue
		}
		eligible = append(eligible, id)
	}
	sort.Strings(eligible)
	return eligible
}

// subjectQualified checks both qualification channels: the standing
// qualification record and the year-scoped subject declaration.
func (f *EligibilityFilter) subjectQualified(teacherID, subjectID string, pool *models.TeacherPool) bool {
	if _, ok := pool.Qualifications[teacherID][subjectID]; ok {
		return true
	}
	return pool.SubjectStatus[teacherID][subjectID] == string(models.AvailabilityAvailable)
}
