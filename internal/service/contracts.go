package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// SlotRepository хранилище слотов (postgres или memory)
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	ListAvailable(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.Slot, error)
	HasOverlap(ctx context.Context, ownerID int64, start, end time.Time) (bool, error)
	MarkBooked(ctx context.Context, slotID, interviewID int64) (bool, error)
	MarkReleased(ctx context.Context, slotID int64) (bool, error)
	Delete(ctx context.Context, slotID int64) (bool, error)
}

// PaymentRepository хранилище платежей
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	FindOpen(ctx context.Context, kind model.PaymentKind, subjectID, payerID int64) (*model.Payment, error)
	LatestForSubject(ctx context.Context, kind model.PaymentKind, subjectID int64) (*model.Payment, error)
	ListBySubject(ctx context.Context, kind model.PaymentKind, subjectID int64) ([]*model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus, payeeID *int64) ([]*model.Payment, error)
	SubmitProof(ctx context.Context, id int64, transactionRef, proofAssetRef string, at time.Time) (bool, error)
	RevertSubmission(ctx context.Context, id int64) (bool, error)
	Decide(ctx context.Context, id, verifierID int64, status model.PaymentStatus, at time.Time) (bool, error)
	Transition(ctx context.Context, id int64, from, to model.PaymentStatus) (bool, error)
	ExpirePending(ctx context.Context, kind model.PaymentKind, cutoff time.Time) ([]*model.Payment, error)
}

// InterviewRepository хранилище интервью
type InterviewRepository interface {
	Create(ctx context.Context, iv *model.Interview) error
	GetByID(ctx context.Context, id int64) (*model.Interview, error)
	ActiveBySlot(ctx context.Context, slotID int64) (*model.Interview, error)
	List(ctx context.Context, userID *int64, status *model.InterviewStatus) ([]*model.Interview, error)
	ListByCandidate(ctx context.Context, candidateID int64, status model.InterviewStatus) ([]*model.Interview, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.InterviewStatus, cancelledBy *int64, at time.Time) (bool, error)
	SetMeetingLink(ctx context.Context, id int64, link string, at time.Time) (bool, error)
	SetRecording(ctx context.Context, id int64, url string, at time.Time) (bool, error)
}

type FeedbackRepository interface {
	Upsert(ctx context.Context, f *model.Feedback) error
	GetByInterview(ctx context.Context, interviewID int64) (*model.Feedback, error)
}

type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) error
	GetByInterview(ctx context.Context, interviewID int64) (*model.Rating, error)
	SummaryForInterviewer(ctx context.Context, interviewerID int64) (*model.RatingSummary, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID int64) (*model.Profile, error)
	GetByTelegramChat(ctx context.Context, chatID int64) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
}

type PriceRepository interface {
	Get(ctx context.Context, interviewType model.InterviewType) (*model.PriceRule, error)
	List(ctx context.Context) ([]*model.PriceRule, error)
	Upsert(ctx context.Context, rule *model.PriceRule) error
}

// TransactionManager выполняет fn в одной транзакции хранилища
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfileCache кэш профилей; ошибки кэша не должны ломать основной сценарий
type ProfileCache interface {
	Get(ctx context.Context, userID int64) (*model.Profile, error)
	Set(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, userID int64) error
}

// EventPublisher получатель доменных событий
type EventPublisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// TimeProvider источник текущего времени (подменяется в тестах)
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider системные часы
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

type noopProfileCache struct{}

func (noopProfileCache) Get(context.Context, int64) (*model.Profile, error) { return nil, nil }
func (noopProfileCache) Set(context.Context, *model.Profile) error          { return nil }
func (noopProfileCache) Delete(context.Context, int64) error                { return nil }
