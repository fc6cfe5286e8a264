package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FeedbackRepository struct {
	*base.Repository
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{Repository: base.NewRepository(pool)}
}

// Upsert создаёт или перезаписывает отзыв по интервью
func (r *FeedbackRepository) Upsert(ctx context.Context, f *model.Feedback) error {
	query := `
		INSERT INTO feedback (interview_id, author_id, coding_and_debugging, communication_score, problem_solving_score,
		                      strengths, areas_of_improvement, additional_comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (interview_id) DO UPDATE SET
			author_id             = EXCLUDED.author_id,
			coding_and_debugging  = EXCLUDED.coding_and_debugging,
			communication_score   = EXCLUDED.communication_score,
			problem_solving_score = EXCLUDED.problem_solving_score,
			strengths             = EXCLUDED.strengths,
			areas_of_improvement  = EXCLUDED.areas_of_improvement,
			additional_comments   = EXCLUDED.additional_comments,
			updated_at            = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		f.InterviewID,
		f.AuthorID,
		f.CodingAndDebugging,
		f.CommunicationScore,
		f.ProblemSolvingScore,
		f.Strengths,
		f.AreasOfImprovement,
		f.AdditionalComments,
		f.UpdatedAt,
	).Scan(&f.CreatedAt, &f.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}

	return nil
}

// GetByInterview отзыв по интервью
func (r *FeedbackRepository) GetByInterview(ctx context.Context, interviewID int64) (*model.Feedback, error) {
	query := `
		SELECT interview_id, author_id, coding_and_debugging, communication_score, problem_solving_score,
		       strengths, areas_of_improvement, additional_comments, created_at, updated_at
		FROM feedback
		WHERE interview_id = $1
	`

	var f model.Feedback
	err := r.QueryRow(ctx, query, interviewID).Scan(
		&f.InterviewID,
		&f.AuthorID,
		&f.CodingAndDebugging,
		&f.CommunicationScore,
		&f.ProblemSolvingScore,
		&f.Strengths,
		&f.AreasOfImprovement,
		&f.AdditionalComments,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get feedback: %w", err)
	}

	return &f, nil
}
