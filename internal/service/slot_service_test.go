package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/recurrence"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSlotService_CreateSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := env.clock.Now().Add(48 * time.Hour)

	slot, err := env.slots.CreateSlot(ctx, interviewer, model.InterviewTypeDSA, start, "Asia/Kolkata")
	require.NoError(t, err)

	assert.NotZero(t, slot.ID)
	assert.Equal(t, start, slot.StartAt)
	assert.Equal(t, start.Add(40*time.Minute), slot.EndAt)
	assert.Equal(t, "Asia/Kolkata", slot.SourceTimeZone)
	assert.Equal(t, int64(500), slot.Price)
	assert.Equal(t, "INR", slot.Currency)
	assert.False(t, slot.IsBooked)
	assert.Nil(t, slot.SeriesID)

	design, err := env.slots.CreateSlot(ctx, interviewer, model.InterviewTypeSystemDesign, start.Add(2*time.Hour), "UTC")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Minute, design.EndAt.Sub(design.StartAt))
}

func TestSlotService_CreateSlotErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	env.slotAt(t, interviewer, model.InterviewTypeDSA, 48*time.Hour)

	tests := []struct {
		name          string
		identity      model.Identity
		interviewType model.InterviewType
		start         time.Time
		zone          string
		wantErr       error
	}{
		{"candidate cannot create", candidate, model.InterviewTypeDSA, now.Add(72 * time.Hour), "UTC", apperr.ErrForbidden},
		{"unknown type", interviewer, "Behavioral", now.Add(72 * time.Hour), "UTC", apperr.ErrValidation},
		{"unknown zone", interviewer, model.InterviewTypeDSA, now.Add(72 * time.Hour), "Mars/Olympus", apperr.ErrValidation},
		{"less than 24h ahead", interviewer, model.InterviewTypeDSA, now.Add(23*time.Hour + 59*time.Minute), "UTC", apperr.ErrLeadTimeViolation},
		{"overlaps own slot", interviewer, model.InterviewTypeDSA, now.Add(48*time.Hour + 20*time.Minute), "UTC", apperr.ErrOverlap},
		{"overlap from before", interviewer, model.InterviewTypeSystemDesign, now.Add(48*time.Hour - 30*time.Minute), "UTC", apperr.ErrOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.slots.CreateSlot(ctx, tt.identity, tt.interviewType, tt.start, tt.zone)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSlotService_CreateSlotBoundaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	// ровно 24 часа допустимо
	first, err := env.slots.CreateSlot(ctx, interviewer, model.InterviewTypeDSA, now.Add(24*time.Hour), "UTC")
	require.NoError(t, err)

	// слот встык к предыдущему не пересекается
	_, err = env.slots.CreateSlot(ctx, interviewer, model.InterviewTypeDSA, first.EndAt, "UTC")
	require.NoError(t, err)

	// у другого интервьюера то же время свободно
	_, err = env.slots.CreateSlot(ctx, otherHost, model.InterviewTypeDSA, first.StartAt, "UTC")
	require.NoError(t, err)
}

func TestSlotService_CreateSlotWithoutPrice(t *testing.T) {
	env := newTestEnv(t)
	store := memory.NewStore()
	logger := zap.NewNop()

	pricing := NewPricingService(store.Prices(), "INR", env.clock, logger)
	slots := NewSlotService(store.Slots(), pricing, store.TxManager(), env.bus, env.clock, logger)

	_, err := slots.CreateSlot(context.Background(), interviewer, model.InterviewTypeDSA, env.clock.Now().Add(48*time.Hour), "UTC")
	assert.ErrorIs(t, err, apperr.ErrPriceNotFound)
}

func TestSlotService_CreateBatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	existing := env.slotAt(t, interviewer, model.InterviewTypeDSA, 72*time.Hour)

	occurrences := []recurrence.Occurrence{
		{StartUTC: now.Add(48 * time.Hour)},
		{StartUTC: existing.StartAt.Add(10 * time.Minute)},
		{StartUTC: now.Add(96 * time.Hour)},
	}

	_, err := env.slots.CreateBatch(ctx, interviewer, model.InterviewTypeDSA, occurrences, "UTC")
	require.Error(t, err)

	var batchErr *apperr.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
	assert.ErrorIs(t, err, apperr.ErrOverlap)

	owned, err := env.slots.ListOwned(ctx, interviewer, now, now.Add(30*24*time.Hour), nil)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, existing.ID, owned[0].ID)
}

func TestSlotService_CreateBatchErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	tests := []struct {
		name      string
		starts    []time.Duration
		wantIndex int
		wantErr   error
	}{
		{"overlap inside batch", []time.Duration{48 * time.Hour, 72 * time.Hour, 72*time.Hour + 30*time.Minute}, 2, apperr.ErrOverlap},
		{"lead time on later item", []time.Duration{48 * time.Hour, 2 * time.Hour}, 1, apperr.ErrLeadTimeViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occurrences := make([]recurrence.Occurrence, 0, len(tt.starts))
			for _, offset := range tt.starts {
				occurrences = append(occurrences, recurrence.Occurrence{StartUTC: now.Add(offset)})
			}

			_, err := env.slots.CreateBatch(ctx, interviewer, model.InterviewTypeDSA, occurrences, "UTC")

			var batchErr *apperr.BatchError
			require.ErrorAs(t, err, &batchErr)
			assert.Equal(t, tt.wantIndex, batchErr.Index)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := env.slots.CreateBatch(ctx, interviewer, model.InterviewTypeDSA, nil, "UTC")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	owned, err := env.slots.ListOwned(ctx, interviewer, now, now.Add(30*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestSlotService_CreateRecurringKolkata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slots, err := env.slots.CreateRecurring(ctx, interviewer, RecurringInput{
		InterviewType: model.InterviewTypeDSA,
		Weekday:       time.Tuesday,
		Hour:          18,
		TimeZone:      "Asia/Kolkata",
		Weeks:         4,
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 4, 12, 30, 0, 0, time.UTC), slots[0].StartAt)
	require.NotNil(t, slots[0].SeriesID)

	for i, slot := range slots {
		local := slot.StartAt.In(kolkata)
		assert.Equal(t, time.Tuesday, local.Weekday())
		assert.Equal(t, 18, local.Hour())
		assert.Equal(t, *slots[0].SeriesID, *slot.SeriesID)
		assert.Equal(t, "Asia/Kolkata", slot.SourceTimeZone)
		if i > 0 {
			assert.Equal(t, 7*24*time.Hour, slot.StartAt.Sub(slots[i-1].StartAt))
		}
	}
}

func TestSlotService_CreateRecurringValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RecurringInput
	}{
		{"bad hour", RecurringInput{InterviewType: model.InterviewTypeDSA, Weekday: time.Monday, Hour: 24, TimeZone: "UTC", Weeks: 2}},
		{"bad weekday", RecurringInput{InterviewType: model.InterviewTypeDSA, Weekday: 7, Hour: 10, TimeZone: "UTC", Weeks: 2}},
		{"zero weeks", RecurringInput{InterviewType: model.InterviewTypeDSA, Weekday: time.Monday, Hour: 10, TimeZone: "UTC", Weeks: 0}},
		{"bad zone", RecurringInput{InterviewType: model.InterviewTypeDSA, Weekday: time.Monday, Hour: 10, TimeZone: "Nowhere/City", Weeks: 2}},
		{"bad type", RecurringInput{InterviewType: "HR", Weekday: time.Monday, Hour: 10, TimeZone: "UTC", Weeks: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.slots.CreateRecurring(ctx, interviewer, tt.input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestSlotService_ListAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	late := env.slotAt(t, interviewer, model.InterviewTypeDSA, 96*time.Hour)
	early := env.slotAt(t, interviewer, model.InterviewTypeSystemDesign, 48*time.Hour)
	other := env.slotAt(t, otherHost, model.InterviewTypeDSA, 72*time.Hour)
	booked, _ := env.bookedInterview(t, candidate, model.InterviewTypeDSA, 120*time.Hour)

	slots, err := env.slots.ListAvailable(ctx, model.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []int64{early.ID, other.ID, late.ID}, []int64{slots[0].ID, slots[1].ID, slots[2].ID})
	for _, slot := range slots {
		assert.NotEqual(t, booked.SlotID, slot.ID)
	}

	ownerID := interviewer.ID
	dsa := model.InterviewTypeDSA
	slots, err = env.slots.ListAvailable(ctx, model.SlotFilter{OwnerID: &ownerID, InterviewType: &dsa})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, late.ID, slots[0].ID)

	slots, err = env.slots.ListAvailable(ctx, model.SlotFilter{From: now.Add(60 * time.Hour), To: now.Add(90 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, other.ID, slots[0].ID)

	_, err = env.slots.ListAvailable(ctx, model.SlotFilter{From: now.Add(time.Hour), To: now})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSlotService_ListOwnedIncludesBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	env.slotAt(t, interviewer, model.InterviewTypeDSA, 48*time.Hour)
	env.bookedInterview(t, candidate, model.InterviewTypeSystemDesign, 72*time.Hour)
	env.slotAt(t, otherHost, model.InterviewTypeDSA, 48*time.Hour)

	owned, err := env.slots.ListOwned(ctx, interviewer, now, now.Add(7*24*time.Hour), nil)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.True(t, owned[1].IsBooked)

	design := model.InterviewTypeSystemDesign
	owned, err = env.slots.ListOwned(ctx, interviewer, now, now.Add(7*24*time.Hour), &design)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	_, err = env.slots.ListOwned(ctx, candidate, now, now.Add(time.Hour), nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSlotService_MarkBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot := env.slotAt(t, interviewer, model.InterviewTypeDSA, 48*time.Hour)

	require.NoError(t, env.slots.MarkBooked(ctx, slot.ID, 42))
	assert.ErrorIs(t, env.slots.MarkBooked(ctx, slot.ID, 43), apperr.ErrAlreadyBooked)
	assert.ErrorIs(t, env.slots.MarkBooked(ctx, 9999, 43), apperr.ErrSlotNotFound)

	require.NoError(t, env.slots.MarkReleased(ctx, slot.ID))
	require.NoError(t, env.slots.MarkBooked(ctx, slot.ID, 43))
}

func TestSlotService_DeleteSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	free := env.slotAt(t, interviewer, model.InterviewTypeDSA, 48*time.Hour)
	booked, _ := env.bookedInterview(t, candidate, model.InterviewTypeDSA, 72*time.Hour)

	assert.ErrorIs(t, env.slots.DeleteSlot(ctx, otherHost, free.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, env.slots.DeleteSlot(ctx, interviewer, booked.SlotID), apperr.ErrSlotBooked)
	assert.ErrorIs(t, env.slots.DeleteSlot(ctx, interviewer, 9999), apperr.ErrSlotNotFound)

	require.NoError(t, env.slots.DeleteSlot(ctx, interviewer, free.ID))
	assert.ErrorIs(t, env.slots.DeleteSlot(ctx, interviewer, free.ID), apperr.ErrSlotNotFound)
}
