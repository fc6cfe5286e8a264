package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var subjectSeq atomic.Int64

// paymentIn создаёт платёж и переводит его в нужный статус напрямую через хранилище
func (e *testEnv) paymentIn(t *testing.T, status model.PaymentStatus) *model.Payment {
	t.Helper()
	ctx := context.Background()
	repo := e.store.Payments()

	payment, err := e.payments.Open(ctx, OpenInput{
		Kind:      model.PaymentKindPreBooking,
		SubjectID: 5000 + subjectSeq.Add(1),
		PayerID:   candidate.ID,
		PayeeID:   interviewer.ID,
		Amount:    500,
		Currency:  "INR",
	})
	require.NoError(t, err)

	if status != model.PaymentStatusPending {
		ok, err := repo.Transition(ctx, payment.ID, model.PaymentStatusPending, status)
		require.NoError(t, err)
		require.True(t, ok)
	}

	payment, err = e.payments.Get(ctx, payment.ID)
	require.NoError(t, err)
	return payment
}

func TestPaymentService_TransitionTable(t *testing.T) {
	type op string
	const (
		submit  op = "submit"
		approve op = "approve"
		reject  op = "reject"
		refund  op = "refund"
	)

	tests := []struct {
		from    model.PaymentStatus
		op      op
		want    model.PaymentStatus
		wantErr error
	}{
		{model.PaymentStatusPending, submit, model.PaymentStatusSubmitted, nil},
		{model.PaymentStatusPending, approve, "", apperr.ErrInvalidState},
		{model.PaymentStatusPending, refund, "", apperr.ErrInvalidState},
		{model.PaymentStatusSubmitted, submit, "", apperr.ErrInvalidState},
		{model.PaymentStatusSubmitted, approve, model.PaymentStatusVerified, nil},
		{model.PaymentStatusSubmitted, reject, model.PaymentStatusRejected, nil},
		{model.PaymentStatusSubmitted, refund, "", apperr.ErrInvalidState},
		{model.PaymentStatusRejected, submit, model.PaymentStatusSubmitted, nil},
		{model.PaymentStatusRejected, approve, "", apperr.ErrInvalidState},
		{model.PaymentStatusRejected, refund, "", apperr.ErrInvalidState},
		{model.PaymentStatusVerified, submit, "", apperr.ErrInvalidState},
		{model.PaymentStatusVerified, reject, "", apperr.ErrInvalidState},
		{model.PaymentStatusVerified, refund, model.PaymentStatusRefunded, nil},
		{model.PaymentStatusRefunded, submit, "", apperr.ErrInvalidState},
		{model.PaymentStatusRefunded, refund, "", apperr.ErrInvalidState},
		{model.PaymentStatusExpired, submit, "", apperr.ErrInvalidState},
		{model.PaymentStatusExpired, approve, "", apperr.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.op), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			payment := env.paymentIn(t, tt.from)

			var (
				got *model.Payment
				err error
			)
			switch tt.op {
			case submit:
				got, err = env.payments.SubmitProof(ctx, candidate, payment.ID, "1234", "proof.png")
			case approve:
				got, err = env.payments.Decide(ctx, interviewer, payment.ID, true)
			case reject:
				got, err = env.payments.Decide(ctx, interviewer, payment.ID, false)
			case refund:
				got, err = env.payments.Refund(ctx, payment.ID)
			}

			stored, getErr := env.payments.Get(ctx, payment.ID)
			require.NoError(t, getErr)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, stored.Status)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestPaymentService_Open(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.payments.Open(ctx, OpenInput{Kind: model.PaymentKindPreBooking, SubjectID: 1, PayerID: candidate.ID, PayeeID: interviewer.ID, Amount: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.payments.Open(ctx, OpenInput{Kind: "cash", SubjectID: 1, PayerID: candidate.ID, PayeeID: interviewer.ID, Amount: 10})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// у получателя без профиля реквизиты пустые
	payment, err := env.payments.Open(ctx, OpenInput{Kind: model.PaymentKindPreBooking, SubjectID: 1, PayerID: candidate.ID, PayeeID: otherHost.ID, Amount: 10, Currency: "INR"})
	require.NoError(t, err)
	assert.Empty(t, payment.UpiID)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)

	_, err = env.payments.Open(ctx, OpenInput{Kind: model.PaymentKindPreBooking, SubjectID: 1, PayerID: candidate.ID, PayeeID: otherHost.ID, Amount: 10})
	assert.ErrorIs(t, err, apperr.ErrDuplicateOpenPayment)

	// другой вид платежа на тот же subject не конфликтует
	_, err = env.payments.Open(ctx, OpenInput{Kind: model.PaymentKindPostInterview, SubjectID: 1, PayerID: candidate.ID, PayeeID: otherHost.ID, Amount: 10})
	require.NoError(t, err)
}

func TestPaymentService_OpenAllowedAfterTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payment := env.paymentIn(t, model.PaymentStatusExpired)

	_, err := env.payments.Open(ctx, OpenInput{
		Kind:      payment.Kind,
		SubjectID: payment.SubjectID,
		PayerID:   payment.PayerID,
		PayeeID:   payment.PayeeID,
		Amount:    payment.Amount,
	})
	require.NoError(t, err)
}

func TestPaymentService_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payment := env.paymentIn(t, model.PaymentStatusPending)

	_, err := env.payments.SubmitProof(ctx, candidate2, payment.ID, "1234", "p.png")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.payments.SubmitProof(ctx, candidate, payment.ID, "1234", "p.png")
	require.NoError(t, err)

	_, err = env.payments.Decide(ctx, otherHost, payment.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.payments.Decide(ctx, candidate, payment.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	decided, err := env.payments.Decide(ctx, admin, payment.ID, true)
	require.NoError(t, err)
	require.NotNil(t, decided.VerifierID)
	assert.Equal(t, admin.ID, *decided.VerifierID)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, env.clock.Now().UTC(), *decided.DecidedAt)

	_, err = env.payments.Decide(ctx, admin, 9999, true)
	assert.ErrorIs(t, err, apperr.ErrPaymentNotFound)
}

func TestPaymentService_ListPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine := env.paymentIn(t, model.PaymentStatusSubmitted)
	env.paymentIn(t, model.PaymentStatusPending)

	foreign, err := env.payments.Open(ctx, OpenInput{Kind: model.PaymentKindPreBooking, SubjectID: 77, PayerID: candidate.ID, PayeeID: otherHost.ID, Amount: 10})
	require.NoError(t, err)
	_, err = env.payments.SubmitProof(ctx, candidate, foreign.ID, "1234", "p.png")
	require.NoError(t, err)

	pending, err := env.payments.ListPending(ctx, interviewer)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	all, err := env.payments.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPaymentService_GetForSubject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payment := env.paymentIn(t, model.PaymentStatusPending)

	for _, who := range []model.Identity{candidate, interviewer, admin} {
		got, err := env.payments.GetForSubject(ctx, who, payment.Kind, payment.SubjectID)
		require.NoError(t, err)
		assert.Equal(t, payment.ID, got.ID)
	}

	_, err := env.payments.GetForSubject(ctx, candidate2, payment.Kind, payment.SubjectID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.payments.GetForSubject(ctx, candidate, payment.Kind, -1)
	assert.ErrorIs(t, err, apperr.ErrPaymentNotFound)
}

func TestPaymentService_ExpireStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expiredEvents := env.bus.Subscribe(events.PaymentExpired)

	stale := env.paymentIn(t, model.PaymentStatusPending)
	submitted := env.paymentIn(t, model.PaymentStatusSubmitted)

	env.clock.Advance(2 * time.Hour)
	fresh := env.paymentIn(t, model.PaymentStatusPending)

	expired, err := env.payments.ExpireStale(ctx, env.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, model.PaymentStatusExpired, expired[0].Status)

	for id, want := range map[int64]model.PaymentStatus{
		stale.ID:     model.PaymentStatusExpired,
		submitted.ID: model.PaymentStatusSubmitted,
		fresh.ID:     model.PaymentStatusPending,
	} {
		got, err := env.payments.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "payment %d", id)
	}

	assert.Equal(t, stale.ID, (<-expiredEvents).Payload["payment_id"])

	_, err = env.payments.SubmitProof(ctx, candidate, stale.ID, "1234", "late.png")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
