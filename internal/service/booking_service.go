package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"go.uber.org/zap"
)

// BookingService связывает слот, предоплату и создание интервью
type BookingService struct {
	slots      SlotRepository
	slotOps    *SlotService
	interviews InterviewRepository
	payments   *PaymentService
	paymentLog PaymentRepository
	profiles   *ProfileService
	txManager  TransactionManager
	events     EventPublisher
	clock      TimeProvider
	logger     *zap.Logger
}

func NewBookingService(
	slots SlotRepository,
	slotOps *SlotService,
	interviews InterviewRepository,
	payments *PaymentService,
	paymentLog PaymentRepository,
	profiles *ProfileService,
	txManager TransactionManager,
	publisher EventPublisher,
	clock TimeProvider,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		slots:      slots,
		slotOps:    slotOps,
		interviews: interviews,
		payments:   payments,
		paymentLog: paymentLog,
		profiles:   profiles,
		txManager:  txManager,
		events:     publisher,
		clock:      clock,
		logger:     logger,
	}
}

// BookSlot резервирует слот за кандидатом: открывает предоплату и
// возвращает реквизиты. Сам слот остаётся свободным до ConfirmBooking.
func (s *BookingService) BookSlot(ctx context.Context, identity model.Identity, slotID int64) (*model.PaymentDetails, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, apperr.ErrSlotNotFound
	}
	if slot.OwnerID == identity.ID {
		return nil, fmt.Errorf("%w: cannot book own slot", apperr.ErrForbidden)
	}
	if slot.IsBooked {
		return nil, apperr.ErrSlotAlreadyBooked
	}
	if !slot.StartAt.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: slot %d started at %s", apperr.ErrSlotStarted, slot.ID, slot.StartAt.UTC().Format(time.RFC3339))
	}

	if err := s.checkOutstandingPayments(ctx, identity.ID); err != nil {
		return nil, err
	}

	payment, err := s.payments.Open(ctx, OpenInput{
		Kind:      model.PaymentKindPreBooking,
		SubjectID: slot.ID,
		PayerID:   identity.ID,
		PayeeID:   slot.OwnerID,
		Amount:    slot.Price,
		Currency:  slot.Currency,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking requested",
		zap.Int64("slot_id", slotID),
		zap.Int64("candidate_id", identity.ID),
		zap.Int64("payment_id", payment.ID),
	)
	s.events.Publish(events.BookingRequested, events.Payload{
		"slot_id":      slot.ID,
		"candidate_id": identity.ID,
		"owner_id":     slot.OwnerID,
		"payment_id":   payment.ID,
	})

	return &model.PaymentDetails{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		UpiID:     payment.UpiID,
		QrCodeURL: payment.QrCodeURL,
	}, nil
}

// ConfirmBooking принимает чек предоплаты и атомарно занимает слот.
// Повторная отправка чека после отклонения возвращает уже созданное интервью.
// Если слот занять не удалось, платёж возвращается в pending.
func (s *BookingService) ConfirmBooking(ctx context.Context, identity model.Identity, paymentID int64, transactionRef, proofAssetRef string) (*model.Interview, error) {
	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Kind != model.PaymentKindPreBooking {
		return nil, fmt.Errorf("%w: payment %d is not a booking payment", apperr.ErrInvalidState, paymentID)
	}
	if payment.PayerID != identity.ID {
		return nil, fmt.Errorf("%w: payment belongs to another candidate", apperr.ErrForbidden)
	}
	if err := s.payments.checkSubmittable(identity, payment, transactionRef, proofAssetRef); err != nil {
		return nil, err
	}

	slotID := payment.SubjectID

	if payment.Status == model.PaymentStatusRejected {
		existing, err := s.interviews.ActiveBySlot(ctx, slotID)
		if err != nil {
			return nil, fmt.Errorf("get interview by slot: %w", err)
		}
		if existing != nil && existing.CandidateID == identity.ID {
			payment, err = s.payments.recordProof(ctx, identity, paymentID, transactionRef, proofAssetRef)
			if err != nil {
				return nil, err
			}
			s.payments.publishSubmitted(payment)

			s.logger.Info("Booking proof resubmitted",
				zap.Int64("payment_id", paymentID),
				zap.Int64("interview_id", existing.ID),
			)
			return existing, nil
		}
	}

	// Всё, что может упасть до захвата, проверяется до записи чека
	interview, err := s.prepareInterview(ctx, identity, slotID)
	if err != nil {
		return nil, err
	}

	payment, err = s.payments.recordProof(ctx, identity, paymentID, transactionRef, proofAssetRef)
	if err != nil {
		return nil, err
	}

	if err := s.claim(ctx, interview); err != nil {
		s.revertSubmission(ctx, paymentID, err)
		return nil, err
	}

	s.payments.publishSubmitted(payment)

	s.logger.Info("Booking confirmed",
		zap.Int64("interview_id", interview.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("candidate_id", identity.ID),
		zap.Int64("payment_id", paymentID),
	)
	s.events.Publish(events.BookingConfirmed, events.Payload{
		"interview_id":   interview.ID,
		"slot_id":        slotID,
		"candidate_id":   interview.CandidateID,
		"interviewer_id": interview.InterviewerID,
		"payment_id":     paymentID,
		"scheduled_at":   interview.ScheduledAt,
	})

	return interview, nil
}

// prepareInterview загружает слот и профиль интервьюера и собирает интервью для захвата
func (s *BookingService) prepareInterview(ctx context.Context, identity model.Identity, slotID int64) (*model.Interview, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, apperr.ErrSlotNotFound
	}
	if slot.IsBooked {
		return nil, apperr.ErrSlotAlreadyBooked
	}
	if !slot.StartAt.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: slot %d started at %s", apperr.ErrSlotStarted, slot.ID, slot.StartAt.UTC().Format(time.RFC3339))
	}

	interviewer, err := s.profiles.Lookup(ctx, slot.OwnerID)
	if err != nil {
		return nil, err
	}

	interview := &model.Interview{
		SlotID:          slot.ID,
		CandidateID:     identity.ID,
		InterviewerID:   slot.OwnerID,
		InterviewType:   slot.InterviewType,
		ScheduledAt:     slot.StartAt,
		DurationMinutes: slot.InterviewType.DurationMinutes(),
		Status:          model.InterviewStatusScheduled,
		UpdatedAt:       s.clock.Now().UTC(),
	}
	if interviewer.DefaultMeetingLink != "" {
		link := interviewer.DefaultMeetingLink
		interview.MeetingLink = &link
	}

	return interview, nil
}

// claim в одной транзакции создаёт интервью и условно помечает слот занятым
func (s *BookingService) claim(ctx context.Context, interview *model.Interview) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.interviews.Create(ctx, interview); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperr.ErrSlotAlreadyBooked
			}
			return fmt.Errorf("create interview: %w", err)
		}

		if err := s.slotOps.MarkBooked(ctx, interview.SlotID, interview.ID); err != nil {
			if errors.Is(err, apperr.ErrAlreadyBooked) {
				return apperr.ErrSlotAlreadyBooked
			}
			return err
		}
		return nil
	})
}

// revertSubmission возвращает платёж в pending после любой неудачи захвата.
// Откат выполняется и при отменённом ctx запроса.
func (s *BookingService) revertSubmission(ctx context.Context, paymentID int64, cause error) {
	s.logger.Warn("Slot claim failed, reverting payment",
		zap.Int64("payment_id", paymentID),
		zap.Error(cause),
	)

	if err := s.payments.RevertSubmission(context.WithoutCancel(ctx), paymentID); err != nil {
		s.logger.Error("Failed to revert payment submission",
			zap.Int64("payment_id", paymentID),
			zap.Error(err),
		)
	}
}

// checkOutstandingPayments блокирует новую бронь, пока у кандидата есть
// завершённое интервью с неподтверждённой постоплатой
func (s *BookingService) checkOutstandingPayments(ctx context.Context, candidateID int64) error {
	completed, err := s.interviews.ListByCandidate(ctx, candidateID, model.InterviewStatusCompleted)
	if err != nil {
		return fmt.Errorf("list completed interviews: %w", err)
	}

	for _, interview := range completed {
		payment, err := s.paymentLog.LatestForSubject(ctx, model.PaymentKindPostInterview, interview.ID)
		if err != nil {
			return fmt.Errorf("get post-interview payment: %w", err)
		}
		if payment != nil && payment.Status != model.PaymentStatusVerified {
			return fmt.Errorf("%w: interview %d payment is %s", apperr.ErrOutstandingPaymentBlock, interview.ID, payment.Status)
		}
	}

	return nil
}
