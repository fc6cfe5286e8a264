package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
)

type SlotRepository struct {
	s *Store
}

func cloneSlot(slot *model.Slot) *model.Slot {
	c := *slot
	if slot.InterviewID != nil {
		id := *slot.InterviewID
		c.InterviewID = &id
	}
	if slot.SeriesID != nil {
		series := *slot.SeriesID
		c.SeriesID = &series
	}
	return &c
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartAt.Equal(slots[j].StartAt) {
			return slots[i].StartAt.Before(slots[j].StartAt)
		}
		return slots[i].ID < slots[j].ID
	})
}

func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.slots {
		if existing.OwnerID == slot.OwnerID && existing.Overlaps(slot.StartAt, slot.EndAt) {
			return fmt.Errorf("create slot: %w", repository.ErrOverlap)
		}
	}

	slot.ID = r.s.nextID()
	slot.CreatedAt = r.s.now()
	slot.IsBooked = false
	slot.InterviewID = nil
	r.s.slots[slot.ID] = cloneSlot(slot)

	id := slot.ID
	r.s.record(ctx, func() { delete(r.s.slots, id) })
	return nil
}

func (r *SlotRepository) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, nil
	}
	return cloneSlot(slot), nil
}

func (r *SlotRepository) ListAvailable(_ context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var slots []*model.Slot
	for _, slot := range r.s.slots {
		if slot.IsBooked {
			continue
		}
		if !filter.From.IsZero() && slot.StartAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !slot.StartAt.Before(filter.To) {
			continue
		}
		if filter.OwnerID != nil && slot.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.InterviewType != nil && slot.InterviewType != *filter.InterviewType {
			continue
		}
		slots = append(slots, cloneSlot(slot))
	}

	sortSlots(slots)
	return slots, nil
}

func (r *SlotRepository) ListByOwner(_ context.Context, ownerID int64, from, to time.Time) ([]*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var slots []*model.Slot
	for _, slot := range r.s.slots {
		if slot.OwnerID == ownerID && !slot.StartAt.Before(from) && slot.StartAt.Before(to) {
			slots = append(slots, cloneSlot(slot))
		}
	}

	sortSlots(slots)
	return slots, nil
}

func (r *SlotRepository) HasOverlap(_ context.Context, ownerID int64, start, end time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, slot := range r.s.slots {
		if slot.OwnerID == ownerID && slot.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *SlotRepository) MarkBooked(ctx context.Context, slotID, interviewID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok || slot.IsBooked {
		return false, nil
	}

	slot.IsBooked = true
	slot.InterviewID = &interviewID
	r.s.record(ctx, func() {
		slot.IsBooked = false
		slot.InterviewID = nil
	})
	return true, nil
}

func (r *SlotRepository) MarkReleased(ctx context.Context, slotID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok || !slot.IsBooked {
		return false, nil
	}

	prev := slot.InterviewID
	slot.IsBooked = false
	slot.InterviewID = nil
	r.s.record(ctx, func() {
		slot.IsBooked = true
		slot.InterviewID = prev
	})
	return true, nil
}

func (r *SlotRepository) Delete(ctx context.Context, slotID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok || slot.IsBooked {
		return false, nil
	}

	delete(r.s.slots, slotID)
	r.s.record(ctx, func() { r.s.slots[slotID] = slot })
	return true, nil
}
