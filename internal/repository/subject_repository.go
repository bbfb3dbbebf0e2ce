package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// SubjectRepository reads subject reference data.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects ordered by code.
func (r *SubjectRepository) List(ctx context.Context, activeOnly bool) ([]models.Subject, error) {
	query := `SELECT * FROM subjects`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns one subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT * FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListCategories returns subject categories.
func (r *SubjectRepository) ListCategories(ctx context.Context) ([]models.SubjectCategory, error) {
	const query = `SELECT * FROM subject_categories ORDER BY name ASC`
	var categories []models.SubjectCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list subject categories: %w", err)
	}
	return categories, nil
}
