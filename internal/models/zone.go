package models

import (
	"fmt"
	"time"
)

// ZoneConstraint states whether a geographic zone may supply teachers for an
// internship type. Absence of a row means the zone is not allowed.
type ZoneConstraint struct {
	ID               string    `db:"id" json:"id"`
	ZoneNumber       int       `db:"zone_number" json:"zone_number"`
	InternshipTypeID string    `db:"internship_type_id" json:"internship_type_id"`
	IsAllowed        bool      `db:"is_allowed" json:"is_allowed"`
	Description      *string   `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ZoneRuleSet is the closed-world lookup built from zone constraint rows.
type ZoneRuleSet struct {
	allowed map[string]bool
}

// NewZoneRuleSet flattens constraint rows into a lookup set.
func NewZoneRuleSet(constraints []ZoneConstraint) ZoneRuleSet {
	allowed := make(map[string]bool, len(constraints))
	for _, zc := range constraints {
		allowed[zoneKey(zc.ZoneNumber, zc.InternshipTypeID)] = zc.IsAllowed
	}
	return ZoneRuleSet{allowed: allowed}
}

// Allowed reports whether the zone may supply teachers for the internship
// type. Missing rows deny.
func (z ZoneRuleSet) Allowed(zoneNumber int, internshipTypeID string) bool {
	return z.allowed[zoneKey(zoneNumber, internshipTypeID)]
}

func zoneKey(zone int, typeID string) string {
	return fmt.Sprintf("%d|%s", zone, typeID)
}
