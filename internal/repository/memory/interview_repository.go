package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
)

type InterviewRepository struct {
	s *Store
}

func cloneInterview(iv *model.Interview) *model.Interview {
	c := *iv
	if iv.MeetingLink != nil {
		link := *iv.MeetingLink
		c.MeetingLink = &link
	}
	if iv.RecordingURL != nil {
		url := *iv.RecordingURL
		c.RecordingURL = &url
	}
	if iv.CancelledBy != nil {
		by := *iv.CancelledBy
		c.CancelledBy = &by
	}
	return &c
}

func (r *InterviewRepository) update(ctx context.Context, id int64, cond func(iv *model.Interview) bool, mutate func(iv *model.Interview)) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	iv, ok := r.s.interviews[id]
	if !ok || !cond(iv) {
		return false
	}

	before := cloneInterview(iv)
	mutate(iv)
	r.s.record(ctx, func() { r.s.interviews[id] = before })
	return true
}

func (r *InterviewRepository) Create(ctx context.Context, iv *model.Interview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.interviews {
		if existing.SlotID == iv.SlotID && existing.Status != model.InterviewStatusCancelled {
			return fmt.Errorf("create interview: %w", repository.ErrConflict)
		}
	}

	iv.ID = r.s.nextID()
	iv.CreatedAt = r.s.now()
	iv.UpdatedAt = iv.CreatedAt
	r.s.interviews[iv.ID] = cloneInterview(iv)

	id := iv.ID
	r.s.record(ctx, func() { delete(r.s.interviews, id) })
	return nil
}

func (r *InterviewRepository) GetByID(_ context.Context, id int64) (*model.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	iv, ok := r.s.interviews[id]
	if !ok {
		return nil, nil
	}
	return cloneInterview(iv), nil
}

func (r *InterviewRepository) ActiveBySlot(_ context.Context, slotID int64) (*model.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, iv := range r.s.interviews {
		if iv.SlotID == slotID && iv.Status != model.InterviewStatusCancelled {
			return cloneInterview(iv), nil
		}
	}
	return nil, nil
}

func (r *InterviewRepository) List(_ context.Context, userID *int64, status *model.InterviewStatus) ([]*model.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var interviews []*model.Interview
	for _, iv := range r.s.interviews {
		if userID != nil && !iv.IsParticipant(*userID) {
			continue
		}
		if status != nil && iv.Status != *status {
			continue
		}
		interviews = append(interviews, cloneInterview(iv))
	}

	sort.Slice(interviews, func(i, j int) bool {
		if !interviews[i].ScheduledAt.Equal(interviews[j].ScheduledAt) {
			return interviews[i].ScheduledAt.After(interviews[j].ScheduledAt)
		}
		return interviews[i].ID > interviews[j].ID
	})
	return interviews, nil
}

func (r *InterviewRepository) ListByCandidate(_ context.Context, candidateID int64, status model.InterviewStatus) ([]*model.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var interviews []*model.Interview
	for _, iv := range r.s.interviews {
		if iv.CandidateID == candidateID && iv.Status == status {
			interviews = append(interviews, cloneInterview(iv))
		}
	}

	sort.Slice(interviews, func(i, j int) bool {
		return interviews[i].ScheduledAt.Before(interviews[j].ScheduledAt)
	})
	return interviews, nil
}

func (r *InterviewRepository) UpdateStatus(ctx context.Context, id int64, from, to model.InterviewStatus, cancelledBy *int64, at time.Time) (bool, error) {
	ok := r.update(ctx, id,
		func(iv *model.Interview) bool { return iv.Status == from },
		func(iv *model.Interview) {
			iv.Status = to
			if cancelledBy != nil {
				by := *cancelledBy
				iv.CancelledBy = &by
			}
			iv.UpdatedAt = at
		})
	return ok, nil
}

func (r *InterviewRepository) SetMeetingLink(ctx context.Context, id int64, link string, at time.Time) (bool, error) {
	ok := r.update(ctx, id,
		func(iv *model.Interview) bool { return iv.Status == model.InterviewStatusScheduled },
		func(iv *model.Interview) {
			iv.MeetingLink = &link
			iv.UpdatedAt = at
		})
	return ok, nil
}

func (r *InterviewRepository) SetRecording(ctx context.Context, id int64, url string, at time.Time) (bool, error) {
	ok := r.update(ctx, id,
		func(iv *model.Interview) bool { return iv.Status == model.InterviewStatusCompleted },
		func(iv *model.Interview) {
			iv.RecordingURL = &url
			iv.UpdatedAt = at
		})
	return ok, nil
}
