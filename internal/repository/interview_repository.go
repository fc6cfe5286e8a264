package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const interviewColumns = `id, slot_id, candidate_id, interviewer_id, interview_type, scheduled_at, duration_minutes,
	status, meeting_link, recording_url, cancelled_by, created_at, updated_at`

type InterviewRepository struct {
	*base.Repository
}

func NewInterviewRepository(pool *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{Repository: base.NewRepository(pool)}
}

func scanInterview(row pgx.Row) (*model.Interview, error) {
	var iv model.Interview
	err := row.Scan(
		&iv.ID,
		&iv.SlotID,
		&iv.CandidateID,
		&iv.InterviewerID,
		&iv.InterviewType,
		&iv.ScheduledAt,
		&iv.DurationMinutes,
		&iv.Status,
		&iv.MeetingLink,
		&iv.RecordingURL,
		&iv.CancelledBy,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iv.ScheduledAt = iv.ScheduledAt.UTC()
	return &iv, nil
}

func (r *InterviewRepository) queryMany(ctx context.Context, op, query string, args ...any) ([]*model.Interview, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var interviews []*model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}

	return interviews, rows.Err()
}

// Create создаёт интервью; второе живое интервью на слот отсекается индексом
func (r *InterviewRepository) Create(ctx context.Context, iv *model.Interview) error {
	query := `
		INSERT INTO interviews (slot_id, candidate_id, interviewer_id, interview_type, scheduled_at, duration_minutes, status, meeting_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		iv.SlotID,
		iv.CandidateID,
		iv.InterviewerID,
		iv.InterviewType,
		iv.ScheduledAt,
		iv.DurationMinutes,
		iv.Status,
		iv.MeetingLink,
	).Scan(&iv.ID, &iv.CreatedAt, &iv.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create interview: %w", ErrConflict)
		}
		return fmt.Errorf("create interview: %w", err)
	}

	return nil
}

// GetByID получает интервью по ID
func (r *InterviewRepository) GetByID(ctx context.Context, id int64) (*model.Interview, error) {
	iv, err := scanInterview(r.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get interview by id: %w", err)
	}
	return iv, nil
}

// ActiveBySlot неотменённое интервью на слоте
func (r *InterviewRepository) ActiveBySlot(ctx context.Context, slotID int64) (*model.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE slot_id = $1 AND status <> 'cancelled'`

	iv, err := scanInterview(r.QueryRow(ctx, query, slotID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active interview by slot: %w", err)
	}
	return iv, nil
}

// interviewsQuery участник совпадает с кандидатом или интервьюером
func interviewsQuery(userID *int64, status *model.InterviewStatus) squirrel.SelectBuilder {
	qb := base.Psql.Select(interviewColumns).
		From("interviews").
		OrderBy("scheduled_at DESC", "id DESC")

	if userID != nil {
		qb = qb.Where(squirrel.Or{
			squirrel.Eq{"candidate_id": *userID},
			squirrel.Eq{"interviewer_id": *userID},
		})
	}
	if status != nil {
		qb = qb.Where(squirrel.Eq{"status": *status})
	}

	return qb
}

// List интервью участника (userID == nil значит все) с необязательным фильтром статуса
func (r *InterviewRepository) List(ctx context.Context, userID *int64, status *model.InterviewStatus) ([]*model.Interview, error) {
	query, args, err := interviewsQuery(userID, status).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build interviews query: %w", err)
	}

	return r.queryMany(ctx, "list interviews", query, args...)
}

// ListByCandidate интервью кандидата в статусе
func (r *InterviewRepository) ListByCandidate(ctx context.Context, candidateID int64, status model.InterviewStatus) ([]*model.Interview, error) {
	query := `
		SELECT ` + interviewColumns + `
		FROM interviews
		WHERE candidate_id = $1 AND status = $2
		ORDER BY scheduled_at
	`
	return r.queryMany(ctx, "list interviews by candidate", query, candidateID, status)
}

// UpdateStatus меняет статус только из ожидаемого
func (r *InterviewRepository) UpdateStatus(ctx context.Context, id int64, from, to model.InterviewStatus, cancelledBy *int64, at time.Time) (bool, error) {
	query := `
		UPDATE interviews
		SET status = $1, cancelled_by = COALESCE($2, cancelled_by), updated_at = $3
		WHERE id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, to, cancelledBy, at, id, from)
	if err != nil {
		return false, fmt.Errorf("update interview status: %w", err)
	}

	return affected == 1, nil
}

// SetMeetingLink ссылка меняется только пока интервью запланировано
func (r *InterviewRepository) SetMeetingLink(ctx context.Context, id int64, link string, at time.Time) (bool, error) {
	query := `
		UPDATE interviews
		SET meeting_link = $1, updated_at = $2
		WHERE id = $3 AND status = 'scheduled'
	`

	affected, err := r.ExecAffected(ctx, query, link, at, id)
	if err != nil {
		return false, fmt.Errorf("set meeting link: %w", err)
	}

	return affected == 1, nil
}

// SetRecording запись доступна только после завершения
func (r *InterviewRepository) SetRecording(ctx context.Context, id int64, url string, at time.Time) (bool, error) {
	query := `
		UPDATE interviews
		SET recording_url = $1, updated_at = $2
		WHERE id = $3 AND status = 'completed'
	`

	affected, err := r.ExecAffected(ctx, query, url, at, id)
	if err != nil {
		return false, fmt.Errorf("set recording url: %w", err)
	}

	return affected == 1, nil
}
