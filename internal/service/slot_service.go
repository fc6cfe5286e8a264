package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/recurrence"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SlotService struct {
	slots     SlotRepository
	pricing   *PricingService
	txManager TransactionManager
	events    EventPublisher
	clock     TimeProvider
	logger    *zap.Logger
}

func NewSlotService(
	slots SlotRepository,
	pricing *PricingService,
	txManager TransactionManager,
	publisher EventPublisher,
	clock TimeProvider,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		slots:     slots,
		pricing:   pricing,
		txManager: txManager,
		events:    publisher,
		clock:     clock,
		logger:    logger,
	}
}

// RecurringInput параметры недельной серии слотов
type RecurringInput struct {
	InterviewType model.InterviewType
	Weekday       time.Weekday
	Hour          int
	TimeZone      string
	Weeks         int
}

func canOwnSlots(identity model.Identity) bool {
	return identity.IsInterviewer() || identity.IsAdmin()
}

// CreateSlot создаёт один слот, начало передаётся в UTC
func (s *SlotService) CreateSlot(ctx context.Context, identity model.Identity, interviewType model.InterviewType, startUTC time.Time, zone string) (*model.Slot, error) {
	if !canOwnSlots(identity) {
		return nil, fmt.Errorf("%w: only interviewers create slots", apperr.ErrForbidden)
	}
	if !interviewType.Valid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", apperr.ErrValidation, interviewType)
	}
	if _, err := recurrence.LoadZone(zone); err != nil {
		return nil, err
	}

	price, err := s.pricing.Get(ctx, interviewType)
	if err != nil {
		return nil, err
	}

	slot := s.newSlot(identity.ID, interviewType, startUTC, zone, price, nil)
	if err := s.insert(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("owner_id", slot.OwnerID),
		zap.String("interview_type", string(slot.InterviewType)),
		zap.Time("start_at", slot.StartAt),
	)
	s.publishCreated(slot)

	return slot, nil
}

// CreateBatch создаёт все слоты в одной транзакции или ни одного.
// Ошибка содержит индекс проблемного элемента в *apperr.BatchError.
func (s *SlotService) CreateBatch(ctx context.Context, identity model.Identity, interviewType model.InterviewType, occurrences []recurrence.Occurrence, zone string) ([]*model.Slot, error) {
	if !canOwnSlots(identity) {
		return nil, fmt.Errorf("%w: only interviewers create slots", apperr.ErrForbidden)
	}
	if !interviewType.Valid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", apperr.ErrValidation, interviewType)
	}
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", apperr.ErrValidation)
	}
	if _, err := recurrence.LoadZone(zone); err != nil {
		return nil, err
	}

	price, err := s.pricing.Get(ctx, interviewType)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New()
	slots := make([]*model.Slot, 0, len(occurrences))
	for _, occ := range occurrences {
		slots = append(slots, s.newSlot(identity.ID, interviewType, occ.StartUTC, zone, price, &seriesID))
	}

	// Пересечения внутри самой пачки
	for i := range slots {
		for j := 0; j < i; j++ {
			if slots[j].Overlaps(slots[i].StartAt, slots[i].EndAt) {
				return nil, &apperr.BatchError{
					Index: i,
					Err:   fmt.Errorf("%w: overlaps batch item %d", apperr.ErrOverlap, j),
				}
			}
		}
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		for i, slot := range slots {
			if err := s.insert(ctx, slot); err != nil {
				return &apperr.BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot batch created",
		zap.Int64("owner_id", identity.ID),
		zap.String("series_id", seriesID.String()),
		zap.Int("count", len(slots)),
	)
	for _, slot := range slots {
		s.publishCreated(slot)
	}

	return slots, nil
}

// CreateRecurring генерирует недельную серию и создаёт её одной пачкой
func (s *SlotService) CreateRecurring(ctx context.Context, identity model.Identity, input RecurringInput) ([]*model.Slot, error) {
	if !input.InterviewType.Valid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", apperr.ErrValidation, input.InterviewType)
	}

	loc, err := recurrence.LoadZone(input.TimeZone)
	if err != nil {
		return nil, err
	}

	occurrences, err := recurrence.Weekly(s.clock.Now(), recurrence.WeeklyRule{
		Weekday:  input.Weekday,
		Hour:     input.Hour,
		Location: loc,
		LeadTime: model.MinLeadTime,
		Count:    input.Weeks,
		Duration: input.InterviewType.Duration(),
	})
	if err != nil {
		return nil, err
	}

	return s.CreateBatch(ctx, identity, input.InterviewType, occurrences, input.TimeZone)
}

// ListAvailable свободные слоты по фильтру, по возрастанию начала
func (s *SlotService) ListAvailable(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	if filter.InterviewType != nil && !filter.InterviewType.Valid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", apperr.ErrValidation, *filter.InterviewType)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: end date before start date", apperr.ErrValidation)
	}

	slots, err := s.slots.ListAvailable(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// ListOwned все слоты интервьюера в интервале, и свободные и занятые
func (s *SlotService) ListOwned(ctx context.Context, identity model.Identity, from, to time.Time, interviewType *model.InterviewType) ([]*model.Slot, error) {
	if !canOwnSlots(identity) {
		return nil, fmt.Errorf("%w: only interviewers own slots", apperr.ErrForbidden)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date before start date", apperr.ErrValidation)
	}

	slots, err := s.slots.ListByOwner(ctx, identity.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list owned slots: %w", err)
	}

	if interviewType == nil {
		return slots, nil
	}

	filtered := make([]*model.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.InterviewType == *interviewType {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}

// Schedule слоты владельца без проверки роли, для доверенных каналов (бот)
func (s *SlotService) Schedule(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.Slot, error) {
	slots, err := s.slots.ListByOwner(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list owner schedule: %w", err)
	}
	return slots, nil
}

// MarkBooked атомарно помечает слот занятым
func (s *SlotService) MarkBooked(ctx context.Context, slotID, interviewID int64) error {
	ok, err := s.slots.MarkBooked(ctx, slotID, interviewID)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	if ok {
		return nil
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return apperr.ErrSlotNotFound
	}
	return apperr.ErrAlreadyBooked
}

// MarkReleased освобождает слот после отмены интервью
func (s *SlotService) MarkReleased(ctx context.Context, slotID int64) error {
	if _, err := s.slots.MarkReleased(ctx, slotID); err != nil {
		return fmt.Errorf("mark slot released: %w", err)
	}
	return nil
}

// DeleteSlot удаляет свободный слот владельца
func (s *SlotService) DeleteSlot(ctx context.Context, identity model.Identity, slotID int64) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return apperr.ErrSlotNotFound
	}
	if slot.OwnerID != identity.ID && !identity.IsAdmin() {
		return apperr.ErrForbidden
	}
	if slot.IsBooked {
		return apperr.ErrSlotBooked
	}

	ok, err := s.slots.Delete(ctx, slotID)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if !ok {
		// между чтением и удалением слот успели забронировать или удалить
		current, err := s.slots.GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if current == nil {
			return apperr.ErrSlotNotFound
		}
		return apperr.ErrSlotBooked
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", slot.OwnerID),
	)
	s.events.Publish(events.SlotDeleted, events.Payload{
		"slot_id":  slotID,
		"owner_id": slot.OwnerID,
	})

	return nil
}

func (s *SlotService) newSlot(ownerID int64, interviewType model.InterviewType, startUTC time.Time, zone string, price *model.PriceRule, seriesID *uuid.UUID) *model.Slot {
	start := startUTC.UTC()
	return &model.Slot{
		OwnerID:        ownerID,
		InterviewType:  interviewType,
		StartAt:        start,
		EndAt:          start.Add(interviewType.Duration()),
		SourceTimeZone: zone,
		Price:          price.Amount,
		Currency:       price.Currency,
		SeriesID:       seriesID,
	}
}

// insert проверяет запас по времени и пересечения, затем пишет слот
func (s *SlotService) insert(ctx context.Context, slot *model.Slot) error {
	if slot.StartAt.Before(s.clock.Now().Add(model.MinLeadTime)) {
		return fmt.Errorf("%w: start %s", apperr.ErrLeadTimeViolation, slot.StartAt.Format(time.RFC3339))
	}

	overlap, err := s.slots.HasOverlap(ctx, slot.OwnerID, slot.StartAt, slot.EndAt)
	if err != nil {
		return fmt.Errorf("check slot overlap: %w", err)
	}
	if overlap {
		return fmt.Errorf("%w: start %s", apperr.ErrOverlap, slot.StartAt.Format(time.RFC3339))
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return fmt.Errorf("%w: start %s", apperr.ErrOverlap, slot.StartAt.Format(time.RFC3339))
		}
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

func (s *SlotService) publishCreated(slot *model.Slot) {
	s.events.Publish(events.SlotCreated, events.Payload{
		"slot_id":        slot.ID,
		"owner_id":       slot.OwnerID,
		"interview_type": string(slot.InterviewType),
		"start_at":       slot.StartAt,
	})
}
