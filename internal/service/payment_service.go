package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"go.uber.org/zap"
)

// PaymentService журнал платежей и их переходов
//
//	pending --SubmitProof--> submitted --Decide(approve)--> verified --Refund--> refunded
//	submitted --Decide(reject)--> rejected --SubmitProof--> submitted
//	pending --ExpireStale--> expired
type PaymentService struct {
	payments PaymentRepository
	profiles *ProfileService
	events   EventPublisher
	clock    TimeProvider
	logger   *zap.Logger
}

func NewPaymentService(
	payments PaymentRepository,
	profiles *ProfileService,
	publisher EventPublisher,
	clock TimeProvider,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		profiles: profiles,
		events:   publisher,
		clock:    clock,
		logger:   logger,
	}
}

// OpenInput параметры нового платежа
type OpenInput struct {
	Kind      model.PaymentKind
	SubjectID int64
	PayerID   int64
	PayeeID   int64
	Amount    int64
	Currency  string
}

// Open создаёт pending платёж. Реквизиты UPI и QR берутся из профиля получателя.
func (s *PaymentService) Open(ctx context.Context, input OpenInput) (*model.Payment, error) {
	if input.Kind != model.PaymentKindPreBooking && input.Kind != model.PaymentKindPostInterview {
		return nil, fmt.Errorf("%w: unknown payment kind %q", apperr.ErrValidation, input.Kind)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}

	existing, err := s.payments.FindOpen(ctx, input.Kind, input.SubjectID, input.PayerID)
	if err != nil {
		return nil, fmt.Errorf("find open payment: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: payment %d is %s", apperr.ErrDuplicateOpenPayment, existing.ID, existing.Status)
	}

	payee, err := s.profiles.Lookup(ctx, input.PayeeID)
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		Kind:      input.Kind,
		SubjectID: input.SubjectID,
		PayerID:   input.PayerID,
		PayeeID:   input.PayeeID,
		Amount:    input.Amount,
		Currency:  input.Currency,
		UpiID:     payee.UpiID,
		QrCodeURL: payee.QrCodeURL,
		Status:    model.PaymentStatusPending,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: concurrent open payment", apperr.ErrDuplicateOpenPayment)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info("Payment opened",
		zap.Int64("payment_id", payment.ID),
		zap.String("kind", string(payment.Kind)),
		zap.Int64("subject_id", payment.SubjectID),
		zap.Int64("payer_id", payment.PayerID),
		zap.Int64("amount", payment.Amount),
	)

	return payment, nil
}

// Get платёж по id, ErrPaymentNotFound если нет
func (s *PaymentService) Get(ctx context.Context, paymentID int64) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, apperr.ErrPaymentNotFound
	}
	return payment, nil
}

// SubmitProof плательщик отправляет номер транзакции и скриншот
func (s *PaymentService) SubmitProof(ctx context.Context, identity model.Identity, paymentID int64, transactionRef, proofAssetRef string) (*model.Payment, error) {
	payment, err := s.recordProof(ctx, identity, paymentID, transactionRef, proofAssetRef)
	if err != nil {
		return nil, err
	}
	s.publishSubmitted(payment)
	return payment, nil
}

// checkSubmittable проверяет чек и то, что платёж ждёт чека от этого плательщика
func (s *PaymentService) checkSubmittable(identity model.Identity, payment *model.Payment, transactionRef, proofAssetRef string) error {
	if strings.TrimSpace(transactionRef) == "" || strings.TrimSpace(proofAssetRef) == "" {
		return fmt.Errorf("%w: transaction reference and proof are required", apperr.ErrValidation)
	}
	if payment.PayerID != identity.ID {
		return fmt.Errorf("%w: only payer can submit proof", apperr.ErrForbidden)
	}
	if !payment.Status.CanSubmitProof() {
		return fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, payment.Status)
	}
	return nil
}

// recordProof переводит платёж в submitted без публикации события:
// бронирование публикует его только когда исход захвата слота известен
func (s *PaymentService) recordProof(ctx context.Context, identity model.Identity, paymentID int64, transactionRef, proofAssetRef string) (*model.Payment, error) {
	transactionRef = strings.TrimSpace(transactionRef)
	proofAssetRef = strings.TrimSpace(proofAssetRef)

	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubmittable(identity, payment, transactionRef, proofAssetRef); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	ok, err := s.payments.SubmitProof(ctx, paymentID, transactionRef, proofAssetRef, now)
	if err != nil {
		return nil, fmt.Errorf("submit payment proof: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment changed concurrently", apperr.ErrInvalidState)
	}

	payment.Status = model.PaymentStatusSubmitted
	payment.TransactionRef = transactionRef
	payment.ProofAssetRef = proofAssetRef
	payment.SubmittedAt = &now
	payment.VerifierID = nil
	payment.DecidedAt = nil

	s.logger.Info("Payment proof submitted",
		zap.Int64("payment_id", paymentID),
		zap.Int64("payer_id", identity.ID),
	)

	return payment, nil
}

func (s *PaymentService) publishSubmitted(payment *model.Payment) {
	s.events.Publish(events.PaymentSubmitted, events.Payload{
		"payment_id": payment.ID,
		"kind":       string(payment.Kind),
		"subject_id": payment.SubjectID,
		"payer_id":   payment.PayerID,
		"payee_id":   payment.PayeeID,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
	})
}

// RevertSubmission возвращает submitted платёж в pending, если занять слот не удалось
func (s *PaymentService) RevertSubmission(ctx context.Context, paymentID int64) error {
	ok, err := s.payments.RevertSubmission(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("revert payment submission: %w", err)
	}
	if !ok {
		s.logger.Warn("Payment submission was not reverted", zap.Int64("payment_id", paymentID))
		return nil
	}

	s.logger.Info("Payment submission reverted", zap.Int64("payment_id", paymentID))
	return nil
}

// Decide получатель или админ подтверждает или отклоняет оплату
func (s *PaymentService) Decide(ctx context.Context, identity model.Identity, paymentID int64, approve bool) (*model.Payment, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.PayeeID != identity.ID && !identity.IsAdmin() {
		return nil, fmt.Errorf("%w: only payee or admin can verify payment", apperr.ErrForbidden)
	}
	if payment.Status != model.PaymentStatusSubmitted {
		return nil, fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, payment.Status)
	}

	status := model.PaymentStatusRejected
	if approve {
		status = model.PaymentStatusVerified
	}

	now := s.clock.Now().UTC()
	ok, err := s.payments.Decide(ctx, paymentID, identity.ID, status, now)
	if err != nil {
		return nil, fmt.Errorf("decide payment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment changed concurrently", apperr.ErrInvalidState)
	}

	verifierID := identity.ID
	payment.Status = status
	payment.VerifierID = &verifierID
	payment.DecidedAt = &now

	s.logger.Info("Payment decided",
		zap.Int64("payment_id", paymentID),
		zap.Int64("verifier_id", identity.ID),
		zap.String("status", string(status)),
	)
	s.events.Publish(events.PaymentDecided, events.Payload{
		"payment_id":  payment.ID,
		"kind":        string(payment.Kind),
		"subject_id":  payment.SubjectID,
		"payer_id":    payment.PayerID,
		"payee_id":    payment.PayeeID,
		"approved":    approve,
		"verifier_id": identity.ID,
	})

	return payment, nil
}

// Refund verified -> refunded
func (s *PaymentService) Refund(ctx context.Context, paymentID int64) (*model.Payment, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusVerified {
		return nil, fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, payment.Status)
	}

	ok, err := s.payments.Transition(ctx, paymentID, model.PaymentStatusVerified, model.PaymentStatusRefunded)
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment changed concurrently", apperr.ErrInvalidState)
	}

	payment.Status = model.PaymentStatusRefunded

	s.logger.Info("Payment refunded",
		zap.Int64("payment_id", paymentID),
		zap.Int64("amount", payment.Amount),
	)
	s.events.Publish(events.PaymentRefunded, events.Payload{
		"payment_id": payment.ID,
		"payer_id":   payment.PayerID,
		"payee_id":   payment.PayeeID,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
	})

	return payment, nil
}

// ListPending платежи с чеком, ожидающие решения этого получателя (админ видит все)
func (s *PaymentService) ListPending(ctx context.Context, identity model.Identity) ([]*model.Payment, error) {
	var payeeID *int64
	if !identity.IsAdmin() {
		id := identity.ID
		payeeID = &id
	}

	payments, err := s.payments.ListByStatus(ctx, model.PaymentStatusSubmitted, payeeID)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return payments, nil
}

// GetForSubject последний платёж по предмету; видят плательщик, получатель и админ
func (s *PaymentService) GetForSubject(ctx context.Context, identity model.Identity, kind model.PaymentKind, subjectID int64) (*model.Payment, error) {
	payment, err := s.payments.LatestForSubject(ctx, kind, subjectID)
	if err != nil {
		return nil, fmt.Errorf("get latest payment: %w", err)
	}
	if payment == nil {
		return nil, apperr.ErrPaymentNotFound
	}
	if !identity.IsAdmin() && payment.PayerID != identity.ID && payment.PayeeID != identity.ID {
		return nil, apperr.ErrForbidden
	}
	return payment, nil
}

// LatestForPayer последний платёж плательщика по предмету, nil если его нет
func (s *PaymentService) LatestForPayer(ctx context.Context, kind model.PaymentKind, subjectID, payerID int64) (*model.Payment, error) {
	payments, err := s.payments.ListBySubject(ctx, kind, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].PayerID == payerID {
			return payments[i], nil
		}
	}
	return nil, nil
}

// ExpireStale переводит pending предоплаты старше cutoff в expired
func (s *PaymentService) ExpireStale(ctx context.Context, cutoff time.Time) ([]*model.Payment, error) {
	expired, err := s.payments.ExpirePending(ctx, model.PaymentKindPreBooking, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire pending payments: %w", err)
	}

	for _, payment := range expired {
		s.logger.Info("Payment expired",
			zap.Int64("payment_id", payment.ID),
			zap.Int64("subject_id", payment.SubjectID),
			zap.Int64("payer_id", payment.PayerID),
		)
		s.events.Publish(events.PaymentExpired, events.Payload{
			"payment_id": payment.ID,
			"subject_id": payment.SubjectID,
			"payer_id":   payment.PayerID,
		})
	}

	return expired, nil
}
