package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SimilarityRepository reads precomputed content similarity between courses.
type SimilarityRepository struct {
	db *sqlx.DB
}

// NewSimilarityRepository constructs a SimilarityRepository.
func NewSimilarityRepository(db *sqlx.DB) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

// Score is symmetric and returns sql.ErrNoRows when the pair was never computed.
func (r *SimilarityRepository) Score(ctx context.Context, courseA, courseB string) (float64, error) {
	const query = `SELECT score FROM course_similarity
WHERE (course_a = $1 AND course_b = $2) OR (course_a = $2 AND course_b = $1)
LIMIT 1`
	var score float64
	if err := r.db.GetContext(ctx, &score, query, courseA, courseB); err != nil {
		return 0, err
	}
	return score, nil
}
