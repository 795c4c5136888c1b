package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ju10/academy-api/internal/models"
)

// StatsRepository computes back-office aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RevenueByKind aggregates enrollment counts and confirmed revenue across
// the three enrollment tables. The UNION ALL keeps everything in one
// statement so the rows come from a single read snapshot instead of three
// independent queries summed client-side.
func (r *StatsRepository) RevenueByKind(ctx context.Context) ([]models.RevenueByKind, error) {
	const query = `SELECT 'class' AS kind,
        COUNT(*) FILTER (WHERE payment_status = 'PAID') AS confirmed,
        COUNT(*) FILTER (WHERE payment_status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE payment_status = 'CANCELLED') AS cancelled,
        COALESCE(SUM(payment_amount) FILTER (WHERE payment_status = 'PAID'), 0) AS revenue
        FROM class_enrollments
        UNION ALL
        SELECT 'course',
        COUNT(*) FILTER (WHERE payment_status = 'PAID'),
        COUNT(*) FILTER (WHERE payment_status = 'PENDING'),
        COUNT(*) FILTER (WHERE payment_status = 'CANCELLED'),
        COALESCE(SUM(payment_amount) FILTER (WHERE payment_status = 'PAID'), 0)
        FROM course_enrollments
        UNION ALL
        SELECT 'mentorship',
        COUNT(*) FILTER (WHERE payment_status = 'PAID'),
        COUNT(*) FILTER (WHERE payment_status = 'PENDING'),
        COUNT(*) FILTER (WHERE payment_status = 'CANCELLED'),
        COALESCE(SUM(payment_amount) FILTER (WHERE payment_status = 'PAID'), 0)
        FROM mentorship_enrollments`

	var rows []models.RevenueByKind
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("aggregate revenue by kind: %w", err)
	}
	return rows, nil
}
