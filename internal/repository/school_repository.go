package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// SchoolRepository reads school reference data.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// List returns schools, optionally only active ones.
func (r *SchoolRepository) List(ctx context.Context, activeOnly bool) ([]models.School, error) {
	query := `SELECT * FROM schools`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY zone_number ASC, name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindByID returns one school.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT * FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}
