package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// DefaultRatingLimit bounds how many historical ratings are read per request.
const DefaultRatingLimit = 5000

// RatingRepository reads historical class performance ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// ListByStudents returns the most recent ratings of the students, at most limit rows.
func (r *RatingRepository) ListByStudents(ctx context.Context, studentIDs []string, limit int) ([]models.PerformanceRating, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > DefaultRatingLimit {
		limit = DefaultRatingLimit
	}
	const query = `SELECT student_id, class_id, day_of_week, hour, rating, recorded_at
FROM class_performance_ratings WHERE student_id = ANY($1) ORDER BY recorded_at DESC LIMIT $2`
	var ratings []models.PerformanceRating
	if err := r.db.SelectContext(ctx, &ratings, query, pq.Array(studentIDs), limit); err != nil {
		return nil, fmt.Errorf("list performance ratings: %w", err)
	}
	return ratings, nil
}
