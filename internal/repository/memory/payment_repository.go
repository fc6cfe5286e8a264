package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
)

type PaymentRepository struct {
	s *Store
}

func clonePayment(p *model.Payment) *model.Payment {
	c := *p
	if p.VerifierID != nil {
		v := *p.VerifierID
		c.VerifierID = &v
	}
	if p.SubmittedAt != nil {
		at := *p.SubmittedAt
		c.SubmittedAt = &at
	}
	if p.DecidedAt != nil {
		at := *p.DecidedAt
		c.DecidedAt = &at
	}
	return &c
}

func sortPayments(payments []*model.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].ID < payments[j].ID
	})
}

// update применяет mutate под блокировкой, если cond выполнено, и пишет откат
func (r *PaymentRepository) update(ctx context.Context, id int64, cond func(p *model.Payment) bool, mutate func(p *model.Payment)) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || !cond(p) {
		return false
	}

	before := clonePayment(p)
	mutate(p)
	r.s.record(ctx, func() { r.s.payments[id] = before })
	return true
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.payments {
		if existing.Kind == p.Kind && existing.SubjectID == p.SubjectID && existing.PayerID == p.PayerID && existing.Status.IsOpen() {
			return fmt.Errorf("create payment: %w", repository.ErrConflict)
		}
	}

	p.ID = r.s.nextID()
	p.CreatedAt = r.s.now()
	r.s.payments[p.ID] = clonePayment(p)

	id := p.ID
	r.s.record(ctx, func() { delete(r.s.payments, id) })
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id int64) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) FindOpen(_ context.Context, kind model.PaymentKind, subjectID, payerID int64) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.Kind == kind && p.SubjectID == subjectID && p.PayerID == payerID && p.Status.IsOpen() {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (r *PaymentRepository) ListBySubject(_ context.Context, kind model.PaymentKind, subjectID int64) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var payments []*model.Payment
	for _, p := range r.s.payments {
		if p.Kind == kind && p.SubjectID == subjectID {
			payments = append(payments, clonePayment(p))
		}
	}

	sortPayments(payments)
	return payments, nil
}

func (r *PaymentRepository) LatestForSubject(ctx context.Context, kind model.PaymentKind, subjectID int64) (*model.Payment, error) {
	payments, err := r.ListBySubject(ctx, kind, subjectID)
	if err != nil || len(payments) == 0 {
		return nil, err
	}
	return payments[len(payments)-1], nil
}

func (r *PaymentRepository) ListByStatus(_ context.Context, status model.PaymentStatus, payeeID *int64) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var payments []*model.Payment
	for _, p := range r.s.payments {
		if p.Status != status {
			continue
		}
		if payeeID != nil && p.PayeeID != *payeeID {
			continue
		}
		payments = append(payments, clonePayment(p))
	}

	sortPayments(payments)
	return payments, nil
}

func (r *PaymentRepository) SubmitProof(ctx context.Context, id int64, transactionRef, proofAssetRef string, at time.Time) (bool, error) {
	ok := r.update(ctx, id,
		func(p *model.Payment) bool { return p.Status.CanSubmitProof() },
		func(p *model.Payment) {
			p.Status = model.PaymentStatusSubmitted
			p.TransactionRef = transactionRef
			p.ProofAssetRef = proofAssetRef
			p.SubmittedAt = &at
			p.VerifierID = nil
			p.DecidedAt = nil
		})
	return ok, nil
}

func (r *PaymentRepository) RevertSubmission(ctx context.Context, id int64) (bool, error) {
	ok := r.update(ctx, id,
		func(p *model.Payment) bool { return p.Status == model.PaymentStatusSubmitted },
		func(p *model.Payment) {
			p.Status = model.PaymentStatusPending
			p.TransactionRef = ""
			p.ProofAssetRef = ""
			p.SubmittedAt = nil
		})
	return ok, nil
}

func (r *PaymentRepository) Decide(ctx context.Context, id, verifierID int64, status model.PaymentStatus, at time.Time) (bool, error) {
	ok := r.update(ctx, id,
		func(p *model.Payment) bool { return p.Status == model.PaymentStatusSubmitted },
		func(p *model.Payment) {
			p.Status = status
			p.VerifierID = &verifierID
			p.DecidedAt = &at
		})
	return ok, nil
}

func (r *PaymentRepository) Transition(ctx context.Context, id int64, from, to model.PaymentStatus) (bool, error) {
	ok := r.update(ctx, id,
		func(p *model.Payment) bool { return p.Status == from },
		func(p *model.Payment) { p.Status = to })
	return ok, nil
}

func (r *PaymentRepository) ExpirePending(ctx context.Context, kind model.PaymentKind, cutoff time.Time) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var expired []*model.Payment
	for id, p := range r.s.payments {
		if p.Kind != kind || p.Status != model.PaymentStatusPending || !p.CreatedAt.Before(cutoff) {
			continue
		}
		p.Status = model.PaymentStatusExpired
		expired = append(expired, clonePayment(p))

		paymentID := id
		r.s.record(ctx, func() { r.s.payments[paymentID].Status = model.PaymentStatusPending })
	}

	sortPayments(expired)
	return expired, nil
}
