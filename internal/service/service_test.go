package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	admin       = model.Identity{ID: 1, Role: model.RoleAdmin}
	interviewer = model.Identity{ID: 100, Role: model.RoleInterviewer}
	otherHost   = model.Identity{ID: 101, Role: model.RoleInterviewer}
	candidate   = model.Identity{ID: 200, Role: model.RoleCandidate}
	candidate2  = model.Identity{ID: 201, Role: model.RoleCandidate}
)

const meetingLink = "https://meet.example.com/room-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store      *memory.Store
	clock      *fakeClock
	bus        *events.Bus
	profiles   *ProfileService
	pricing    *PricingService
	slots      *SlotService
	payments   *PaymentService
	bookings   *BookingService
	interviews *InterviewService
	feedback   *FeedbackService
}

// newTestEnv собирает сервисы поверх memory хранилища.
// Часы стоят на понедельнике 2024-06-03 10:00 UTC.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	bus := events.NewBus()
	logger := zap.NewNop()
	tx := store.TxManager()

	env := &testEnv{store: store, clock: clock, bus: bus}
	env.profiles = NewProfileService(store.Profiles(), nil, clock, logger)
	env.pricing = NewPricingService(store.Prices(), "INR", clock, logger)
	env.slots = NewSlotService(store.Slots(), env.pricing, tx, bus, clock, logger)
	env.payments = NewPaymentService(store.Payments(), env.profiles, bus, clock, logger)
	env.bookings = NewBookingService(store.Slots(), env.slots, store.Interviews(), env.payments, store.Payments(), env.profiles, tx, bus, clock, logger)
	env.interviews = NewInterviewService(store.Interviews(), env.slots, env.payments, env.pricing, tx, bus, clock, logger)
	env.feedback = NewFeedbackService(store.Feedback(), store.Ratings(), store.Interviews(), bus, clock, logger)

	ctx := context.Background()
	_, err := env.pricing.Upsert(ctx, admin, model.PriceRule{InterviewType: model.InterviewTypeDSA, Amount: 500})
	require.NoError(t, err)
	_, err = env.pricing.Upsert(ctx, admin, model.PriceRule{InterviewType: model.InterviewTypeSystemDesign, Amount: 800, PostInterviewAmount: 300, Currency: "inr"})
	require.NoError(t, err)

	link := meetingLink
	upi := "host@upi"
	qr := "https://cdn.example.com/qr/100.png"
	_, err = env.profiles.Update(ctx, interviewer, ProfileInput{DefaultMeetingLink: &link, UpiID: &upi, QrCodeURL: &qr})
	require.NoError(t, err)

	return env
}

// slotAt создаёт слот интервьюера через offset от текущего времени
func (e *testEnv) slotAt(t *testing.T, owner model.Identity, interviewType model.InterviewType, offset time.Duration) *model.Slot {
	t.Helper()

	slot, err := e.slots.CreateSlot(context.Background(), owner, interviewType, e.clock.Now().Add(offset), "UTC")
	require.NoError(t, err)
	return slot
}

// bookedInterview проводит кандидата через бронь и подтверждение
func (e *testEnv) bookedInterview(t *testing.T, who model.Identity, interviewType model.InterviewType, offset time.Duration) (*model.Interview, int64) {
	t.Helper()
	ctx := context.Background()

	slot := e.slotAt(t, interviewer, interviewType, offset)

	details, err := e.bookings.BookSlot(ctx, who, slot.ID)
	require.NoError(t, err)

	interview, err := e.bookings.ConfirmBooking(ctx, who, details.PaymentID, "1234", "proofs/"+slot.StartAt.Format(time.RFC3339)+".png")
	require.NoError(t, err)

	return interview, details.PaymentID
}

// completedInterview доводит интервью до completed
func (e *testEnv) completedInterview(t *testing.T, who model.Identity, interviewType model.InterviewType, offset time.Duration) *model.Interview {
	t.Helper()
	ctx := context.Background()

	interview, _ := e.bookedInterview(t, who, interviewType, offset)

	_, err := e.interviews.Start(ctx, interviewer, interview.ID)
	require.NoError(t, err)

	completed, err := e.interviews.Complete(ctx, interviewer, interview.ID)
	require.NoError(t, err)
	return completed
}
