package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// ZoneConstraintRepository reads zone eligibility rules.
type ZoneConstraintRepository struct {
	db *sqlx.DB
}

// NewZoneConstraintRepository constructs the repository.
func NewZoneConstraintRepository(db *sqlx.DB) *ZoneConstraintRepository {
	return &ZoneConstraintRepository{db: db}
}

// List returns all zone constraint rows.
func (r *ZoneConstraintRepository) List(ctx context.Context) ([]models.ZoneConstraint, error) {
	const query = `SELECT * FROM zone_constraints ORDER BY zone_number ASC`
	var constraints []models.ZoneConstraint
	if err := r.db.SelectContext(ctx, &constraints, query); err != nil {
		return nil, fmt.Errorf("list zone constraints: %w", err)
	}
	return constraints, nil
}

// LoadRuleSet reads all constraint rows and flattens them into a closed-world
// lookup. Zones without a row are denied.
func (r *ZoneConstraintRepository) LoadRuleSet(ctx context.Context, exec sqlx.ExtContext) (models.ZoneRuleSet, error) {
	const query = `SELECT * FROM zone_constraints`
	var constraints []models.ZoneConstraint
	if err := sqlx.SelectContext(ctx, exec, &constraints, query); err != nil {
		return models.ZoneRuleSet{}, fmt.Errorf("load zone rule set: %w", err)
	}
	return models.NewZoneRuleSet(constraints), nil
}
