//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/Freeeeeet/interview_scheduler/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestPool поднимает схему в базе из TEST_DB_DSN и чистит таблицы
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(ctx))
	require.NoError(t, migrator.Close())

	_, err = pool.Exec(ctx, `TRUNCATE slots, interviews, payments, feedback, ratings, profiles, price_rules RESTART IDENTITY`)
	require.NoError(t, err)

	return pool
}

func newSlot(owner int64, start time.Time) *model.Slot {
	return &model.Slot{
		OwnerID:        owner,
		InterviewType:  model.InterviewTypeDSA,
		StartAt:        start,
		EndAt:          start.Add(40 * time.Minute),
		SourceTimeZone: "Asia/Kolkata",
		Price:          500,
		Currency:       "INR",
	}
}

func TestPostgres_SlotOverlapAndClaim(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	slots := repository.NewSlotRepository(pool)

	start := time.Date(2030, 6, 5, 3, 30, 0, 0, time.UTC)
	slot := newSlot(100, start)
	require.NoError(t, slots.Create(ctx, slot))
	assert.NotZero(t, slot.ID)

	err := slots.Create(ctx, newSlot(100, start.Add(20*time.Minute)))
	assert.True(t, errors.Is(err, repository.ErrOverlap))

	// соседний слот встык не пересекается
	require.NoError(t, slots.Create(ctx, newSlot(100, start.Add(40*time.Minute))))

	ok, err := slots.MarkBooked(ctx, slot.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = slots.MarkBooked(ctx, slot.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsBooked)
	require.NotNil(t, got.InterviewID)
	assert.Equal(t, int64(1), *got.InterviewID)

	dsa := model.InterviewTypeDSA
	available, err := slots.ListAvailable(ctx, model.SlotFilter{From: start, InterviewType: &dsa})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, start.Add(40*time.Minute), available[0].StartAt)

	missing, err := slots.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgres_PaymentSubmitAndRevert(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	payments := repository.NewPaymentRepository(pool)

	p := &model.Payment{
		Kind:      model.PaymentKindPreBooking,
		SubjectID: 1,
		PayerID:   200,
		PayeeID:   100,
		Amount:    500,
		Currency:  "INR",
		Status:    model.PaymentStatusPending,
	}
	require.NoError(t, payments.Create(ctx, p))

	dup := *p
	dup.ID = 0
	err := payments.Create(ctx, &dup)
	assert.True(t, errors.Is(err, repository.ErrConflict))

	at := time.Date(2030, 6, 3, 10, 0, 0, 0, time.UTC)
	ok, err := payments.SubmitProof(ctx, p.ID, "4321", "proofs/1/a.png", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = payments.SubmitProof(ctx, p.ID, "4321", "proofs/1/b.png", at)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = payments.RevertSubmission(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.PaymentStatusPending, got.Status)
	assert.Empty(t, got.TransactionRef)
	assert.Empty(t, got.ProofAssetRef)
	assert.Nil(t, got.SubmittedAt)

	payee := int64(100)
	pending, err := payments.ListByStatus(ctx, model.PaymentStatusPending, &payee)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPostgres_InterviewActivePerSlotInsideTx(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	interviews := repository.NewInterviewRepository(pool)
	slots := repository.NewSlotRepository(pool)
	tx := base.NewTxManager(pool)

	slot := newSlot(100, time.Date(2030, 6, 5, 3, 30, 0, 0, time.UTC))
	require.NoError(t, slots.Create(ctx, slot))

	newInterview := func(candidate int64) *model.Interview {
		return &model.Interview{
			SlotID:          slot.ID,
			CandidateID:     candidate,
			InterviewerID:   slot.OwnerID,
			InterviewType:   slot.InterviewType,
			ScheduledAt:     slot.StartAt,
			DurationMinutes: 40,
			Status:          model.InterviewStatusScheduled,
		}
	}

	first := newInterview(200)
	err := tx.Do(ctx, func(ctx context.Context) error {
		if err := interviews.Create(ctx, first); err != nil {
			return err
		}
		_, err := slots.MarkBooked(ctx, slot.ID, first.ID)
		return err
	})
	require.NoError(t, err)

	// второе живое интервью на слот откатывает всю транзакцию
	err = tx.Do(ctx, func(ctx context.Context) error {
		if _, err := slots.MarkReleased(ctx, slot.ID); err != nil {
			return err
		}
		return interviews.Create(ctx, newInterview(201))
	})
	assert.True(t, errors.Is(err, repository.ErrConflict))

	got, err := slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBooked)

	active, err := interviews.ActiveBySlot(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)

	user := int64(200)
	list, err := interviews.List(ctx, &user, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
