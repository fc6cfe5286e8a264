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

const slotColumns = `id, owner_id, interview_type, start_at, end_at, source_time_zone, price, currency, is_booked, interview_id, series_id, created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.InterviewType,
		&slot.StartAt,
		&slot.EndAt,
		&slot.SourceTimeZone,
		&slot.Price,
		&slot.Currency,
		&slot.IsBooked,
		&slot.InterviewID,
		&slot.SeriesID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.StartAt = slot.StartAt.UTC()
	slot.EndAt = slot.EndAt.UTC()
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (owner_id, interview_type, start_at, end_at, source_time_zone, price, currency, is_booked, series_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.InterviewType,
		slot.StartAt,
		slot.EndAt,
		slot.SourceTimeZone,
		slot.Price,
		slot.Currency,
		slot.SeriesID,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsExclusionViolation(err) {
			return fmt.Errorf("create slot: %w", ErrOverlap)
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// availableSlotsQuery собирает выборку свободных слотов; пустые поля фильтра не ограничивают
func availableSlotsQuery(filter model.SlotFilter) squirrel.SelectBuilder {
	qb := base.Psql.Select(slotColumns).
		From("slots").
		Where(squirrel.Eq{"is_booked": false}).
		OrderBy("start_at", "id")

	if !filter.From.IsZero() {
		qb = qb.Where(squirrel.GtOrEq{"start_at": filter.From})
	}
	if !filter.To.IsZero() {
		qb = qb.Where(squirrel.Lt{"start_at": filter.To})
	}
	if filter.OwnerID != nil {
		qb = qb.Where(squirrel.Eq{"owner_id": *filter.OwnerID})
	}
	if filter.InterviewType != nil {
		qb = qb.Where(squirrel.Eq{"interview_type": *filter.InterviewType})
	}

	return qb
}

// ListAvailable свободные слоты по фильтру, по возрастанию времени начала
func (r *SlotRepository) ListAvailable(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	query, args, err := availableSlotsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build available slots query: %w", err)
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}

	return collectSlots(rows)
}

// ListByOwner все слоты интервьюера за период
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at
	`

	rows, err := r.Query(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots by owner: %w", err)
	}

	return collectSlots(rows)
}

// HasOverlap есть ли у владельца слот, пересекающий [start, end)
func (r *SlotRepository) HasOverlap(ctx context.Context, ownerID int64, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM slots
			WHERE owner_id = $1 AND start_at < $3 AND end_at > $2
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, ownerID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot overlap: %w", err)
	}

	return exists, nil
}

// MarkBooked атомарно помечает свободный слот забронированным
func (r *SlotRepository) MarkBooked(ctx context.Context, slotID, interviewID int64) (bool, error) {
	query := `
		UPDATE slots
		SET is_booked = TRUE, interview_id = $1
		WHERE id = $2 AND is_booked = FALSE
	`

	affected, err := r.ExecAffected(ctx, query, interviewID, slotID)
	if err != nil {
		return false, fmt.Errorf("mark slot booked: %w", err)
	}

	return affected == 1, nil
}

// MarkReleased освобождает забронированный слот
func (r *SlotRepository) MarkReleased(ctx context.Context, slotID int64) (bool, error) {
	query := `
		UPDATE slots
		SET is_booked = FALSE, interview_id = NULL
		WHERE id = $1 AND is_booked = TRUE
	`

	affected, err := r.ExecAffected(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("mark slot released: %w", err)
	}

	return affected == 1, nil
}

// Delete удаляет слот, только если он свободен
func (r *SlotRepository) Delete(ctx context.Context, slotID int64) (bool, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM slots WHERE id = $1 AND is_booked = FALSE`, slotID)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return affected == 1, nil
}
