package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

type InterviewService struct {
	interviews InterviewRepository
	slots      *SlotService
	payments   *PaymentService
	pricing    *PricingService
	txManager  TransactionManager
	events     EventPublisher
	clock      TimeProvider
	logger     *zap.Logger
}

func NewInterviewService(
	interviews InterviewRepository,
	slots *SlotService,
	payments *PaymentService,
	pricing *PricingService,
	txManager TransactionManager,
	publisher EventPublisher,
	clock TimeProvider,
	logger *zap.Logger,
) *InterviewService {
	return &InterviewService{
		interviews: interviews,
		slots:      slots,
		payments:   payments,
		pricing:    pricing,
		txManager:  txManager,
		events:     publisher,
		clock:      clock,
		logger:     logger,
	}
}

// InterviewPayments предоплата и постоплата одного интервью
type InterviewPayments struct {
	PreBooking    *model.Payment `json:"preBooking"`
	PostInterview *model.Payment `json:"postInterview"`
}

// Get интервью для участника или админа
func (s *InterviewService) Get(ctx context.Context, identity model.Identity, interviewID int64) (*model.Interview, error) {
	interview, err := s.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !interview.IsParticipant(identity.ID) && !identity.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	return interview, nil
}

// List интервью пользователя, админ без фильтра по участнику
func (s *InterviewService) List(ctx context.Context, identity model.Identity, status *model.InterviewStatus) ([]*model.Interview, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown interview status %q", apperr.ErrValidation, *status)
	}

	var userID *int64
	if !identity.IsAdmin() {
		id := identity.ID
		userID = &id
	}

	interviews, err := s.interviews.List(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return interviews, nil
}

// SetMeetingLink меняет ссылку на встречу, пока интервью не началось
func (s *InterviewService) SetMeetingLink(ctx context.Context, identity model.Identity, interviewID int64, link string) (*model.Interview, error) {
	link = strings.TrimSpace(link)
	if err := ValidateURL(link); err != nil {
		return nil, fmt.Errorf("%w: meeting link: %v", apperr.ErrValidation, err)
	}

	interview, err := s.loadForInterviewer(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.InterviewStatusScheduled {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	now := s.clock.Now().UTC()
	ok, err := s.interviews.SetMeetingLink(ctx, interviewID, link, now)
	if err != nil {
		return nil, fmt.Errorf("set meeting link: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview changed concurrently", apperr.ErrInvalidState)
	}

	interview.MeetingLink = &link
	interview.UpdatedAt = now

	s.logger.Info("Meeting link set", zap.Int64("interview_id", interviewID))
	return interview, nil
}

// Start scheduled -> in-progress, нужна ссылка на встречу
func (s *InterviewService) Start(ctx context.Context, identity model.Identity, interviewID int64) (*model.Interview, error) {
	interview, err := s.loadForInterviewer(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.InterviewStatusScheduled {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}
	if interview.MeetingLink == nil || *interview.MeetingLink == "" {
		return nil, apperr.ErrMeetingLinkRequired
	}

	if err := s.transition(ctx, interview, model.InterviewStatusInProgress, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Interview started", zap.Int64("interview_id", interviewID))
	s.publish(events.InterviewStarted, interview)

	return interview, nil
}

// Complete in-progress -> completed; при постоплате открывает платёж кандидата
func (s *InterviewService) Complete(ctx context.Context, identity model.Identity, interviewID int64) (*model.Interview, error) {
	interview, err := s.loadForInterviewer(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.InterviewStatusInProgress {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	rule, err := s.pricing.Get(ctx, interview.InterviewType)
	if err != nil && !errors.Is(err, apperr.ErrPriceNotFound) {
		return nil, err
	}

	var postPayment *model.Payment
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.transition(ctx, interview, model.InterviewStatusCompleted, nil); err != nil {
			return err
		}

		if rule == nil || !rule.RequiresPostPay() {
			return nil
		}

		postPayment, err = s.payments.Open(ctx, OpenInput{
			Kind:      model.PaymentKindPostInterview,
			SubjectID: interview.ID,
			PayerID:   interview.CandidateID,
			PayeeID:   interview.InterviewerID,
			Amount:    rule.PostInterviewAmount,
			Currency:  rule.Currency,
		})
		return err
	})
	if err != nil {
		// откат транзакции вернул статус в хранилище
		interview.Status = model.InterviewStatusInProgress
		return nil, err
	}

	fields := []zap.Field{zap.Int64("interview_id", interviewID)}
	if postPayment != nil {
		fields = append(fields, zap.Int64("post_payment_id", postPayment.ID))
	}
	s.logger.Info("Interview completed", fields...)
	s.publish(events.InterviewCompleted, interview)

	return interview, nil
}

// Cancel scheduled -> cancelled: освобождает слот и возвращает подтверждённую предоплату.
// Неподтверждённые платежи не трогаются.
func (s *InterviewService) Cancel(ctx context.Context, identity model.Identity, interviewID int64) (*model.Interview, error) {
	interview, err := s.Get(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.InterviewStatusScheduled {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	var refunded *model.Payment
	cancelledBy := identity.ID

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.transition(ctx, interview, model.InterviewStatusCancelled, &cancelledBy); err != nil {
			return err
		}

		if err := s.slots.MarkReleased(ctx, interview.SlotID); err != nil {
			return err
		}

		payment, err := s.payments.LatestForPayer(ctx, model.PaymentKindPreBooking, interview.SlotID, interview.CandidateID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != model.PaymentStatusVerified {
			return nil
		}

		refunded, err = s.payments.Refund(ctx, payment.ID)
		return err
	})
	if err != nil {
		interview.Status = model.InterviewStatusScheduled
		interview.CancelledBy = nil
		return nil, err
	}

	fields := []zap.Field{
		zap.Int64("interview_id", interviewID),
		zap.Int64("cancelled_by", cancelledBy),
	}
	if refunded != nil {
		fields = append(fields, zap.Int64("refunded_payment_id", refunded.ID))
	}
	s.logger.Info("Interview cancelled", fields...)
	s.publish(events.InterviewCancelled, interview)

	return interview, nil
}

// SetRecording ссылка на запись, только после завершения
func (s *InterviewService) SetRecording(ctx context.Context, identity model.Identity, interviewID int64, recordingURL string) (*model.Interview, error) {
	recordingURL = strings.TrimSpace(recordingURL)
	if err := ValidateURL(recordingURL); err != nil {
		return nil, fmt.Errorf("%w: recording url: %v", apperr.ErrValidation, err)
	}

	interview, err := s.loadForInterviewer(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.InterviewStatusCompleted {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	now := s.clock.Now().UTC()
	ok, err := s.interviews.SetRecording(ctx, interviewID, recordingURL, now)
	if err != nil {
		return nil, fmt.Errorf("set recording: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview changed concurrently", apperr.ErrInvalidState)
	}

	interview.RecordingURL = &recordingURL
	interview.UpdatedAt = now
	return interview, nil
}

// Payments статус оплат интервью для участника
func (s *InterviewService) Payments(ctx context.Context, identity model.Identity, interviewID int64) (*InterviewPayments, error) {
	interview, err := s.Get(ctx, identity, interviewID)
	if err != nil {
		return nil, err
	}

	pre, err := s.payments.LatestForPayer(ctx, model.PaymentKindPreBooking, interview.SlotID, interview.CandidateID)
	if err != nil {
		return nil, err
	}
	post, err := s.payments.LatestForPayer(ctx, model.PaymentKindPostInterview, interview.ID, interview.CandidateID)
	if err != nil {
		return nil, err
	}

	return &InterviewPayments{PreBooking: pre, PostInterview: post}, nil
}

func (s *InterviewService) load(ctx context.Context, interviewID int64) (*model.Interview, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	if interview == nil {
		return nil, apperr.ErrInterviewNotFound
	}
	return interview, nil
}

// loadForInterviewer интервью, которым может управлять интервьюер или админ
func (s *InterviewService) loadForInterviewer(ctx context.Context, identity model.Identity, interviewID int64) (*model.Interview, error) {
	interview, err := s.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.InterviewerID != identity.ID && !identity.IsAdmin() {
		return nil, fmt.Errorf("%w: only interviewer can manage the interview", apperr.ErrForbidden)
	}
	return interview, nil
}

func (s *InterviewService) transition(ctx context.Context, interview *model.Interview, to model.InterviewStatus, cancelledBy *int64) error {
	now := s.clock.Now().UTC()
	ok, err := s.interviews.UpdateStatus(ctx, interview.ID, interview.Status, to, cancelledBy, now)
	if err != nil {
		return fmt.Errorf("update interview status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: interview changed concurrently", apperr.ErrInvalidState)
	}

	interview.Status = to
	interview.UpdatedAt = now
	if cancelledBy != nil {
		interview.CancelledBy = cancelledBy
	}
	return nil
}

func (s *InterviewService) publish(eventType events.EventType, interview *model.Interview) {
	s.events.Publish(eventType, events.Payload{
		"interview_id":   interview.ID,
		"slot_id":        interview.SlotID,
		"candidate_id":   interview.CandidateID,
		"interviewer_id": interview.InterviewerID,
		"status":         string(interview.Status),
	})
}
