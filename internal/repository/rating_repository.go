package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepository struct {
	*base.Repository
}

func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет оценку; повторная оценка того же интервью даёт ErrConflict
func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	query := `
		INSERT INTO ratings (interview_id, candidate_id, interviewer_id, rating, feedback)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		rating.InterviewID,
		rating.CandidateID,
		rating.InterviewerID,
		rating.Rating,
		rating.Feedback,
	).Scan(&rating.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create rating: %w", ErrConflict)
		}
		return fmt.Errorf("create rating: %w", err)
	}

	return nil
}

// GetByInterview оценка по интервью
func (r *RatingRepository) GetByInterview(ctx context.Context, interviewID int64) (*model.Rating, error) {
	query := `
		SELECT interview_id, candidate_id, interviewer_id, rating, feedback, created_at
		FROM ratings
		WHERE interview_id = $1
	`

	var rating model.Rating
	err := r.QueryRow(ctx, query, interviewID).Scan(
		&rating.InterviewID,
		&rating.CandidateID,
		&rating.InterviewerID,
		&rating.Rating,
		&rating.Feedback,
		&rating.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}

	return &rating, nil
}

// SummaryForInterviewer средняя оценка и количество оценок
func (r *RatingRepository) SummaryForInterviewer(ctx context.Context, interviewerID int64) (*model.RatingSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM ratings
		WHERE interviewer_id = $1
	`

	summary := &model.RatingSummary{InterviewerID: interviewerID}
	err := r.QueryRow(ctx, query, interviewerID).Scan(&summary.Average, &summary.Count)
	if err != nil {
		return nil, fmt.Errorf("get rating summary: %w", err)
	}

	return summary, nil
}
