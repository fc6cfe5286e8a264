package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
)

type FeedbackRepository struct {
	s *Store
}

func (r *FeedbackRepository) Upsert(ctx context.Context, f *model.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, existed := r.s.feedback[f.InterviewID]
	if existed {
		f.CreatedAt = prev.CreatedAt
	} else {
		f.CreatedAt = f.UpdatedAt
	}

	c := *f
	r.s.feedback[f.InterviewID] = &c

	id := f.InterviewID
	r.s.record(ctx, func() {
		if existed {
			r.s.feedback[id] = prev
			return
		}
		delete(r.s.feedback, id)
	})
	return nil
}

func (r *FeedbackRepository) GetByInterview(_ context.Context, interviewID int64) (*model.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.feedback[interviewID]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

type RatingRepository struct {
	s *Store
}

func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.ratings[rating.InterviewID]; ok {
		return fmt.Errorf("create rating: %w", repository.ErrConflict)
	}

	rating.CreatedAt = r.s.now()
	c := *rating
	r.s.ratings[rating.InterviewID] = &c

	id := rating.InterviewID
	r.s.record(ctx, func() { delete(r.s.ratings, id) })
	return nil
}

func (r *RatingRepository) GetByInterview(_ context.Context, interviewID int64) (*model.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rating, ok := r.s.ratings[interviewID]
	if !ok {
		return nil, nil
	}
	c := *rating
	return &c, nil
}

func (r *RatingRepository) SummaryForInterviewer(_ context.Context, interviewerID int64) (*model.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summary := &model.RatingSummary{InterviewerID: interviewerID}
	total := 0
	for _, rating := range r.s.ratings {
		if rating.InterviewerID == interviewerID {
			total += rating.Rating
			summary.Count++
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

type ProfileRepository struct {
	s *Store
}

func (r *ProfileRepository) Get(_ context.Context, userID int64) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// GetByTelegramChat последний обновлённый профиль с этим чатом
func (r *ProfileRepository) GetByTelegramChat(_ context.Context, chatID int64) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *model.Profile
	for _, p := range r.s.profiles {
		if p.TelegramChatID == nil || *p.TelegramChatID != chatID {
			continue
		}
		if found == nil || p.UpdatedAt.After(found.UpdatedAt) {
			found = p
		}
	}
	if found == nil {
		return nil, nil
	}
	c := *found
	return &c, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, existed := r.s.profiles[p.UserID]
	c := *p
	r.s.profiles[p.UserID] = &c

	id := p.UserID
	r.s.record(ctx, func() {
		if existed {
			r.s.profiles[id] = prev
			return
		}
		delete(r.s.profiles, id)
	})
	return nil
}

type PriceRepository struct {
	s *Store
}

func (r *PriceRepository) Get(_ context.Context, interviewType model.InterviewType) (*model.PriceRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rule, ok := r.s.prices[interviewType]
	if !ok {
		return nil, nil
	}
	c := *rule
	return &c, nil
}

func (r *PriceRepository) List(_ context.Context) ([]*model.PriceRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rules := make([]*model.PriceRule, 0, len(r.s.prices))
	for _, rule := range r.s.prices {
		c := *rule
		rules = append(rules, &c)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].InterviewType < rules[j].InterviewType })
	return rules, nil
}

func (r *PriceRepository) Upsert(ctx context.Context, rule *model.PriceRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, existed := r.s.prices[rule.InterviewType]
	c := *rule
	r.s.prices[rule.InterviewType] = &c

	t := rule.InterviewType
	r.s.record(ctx, func() {
		if existed {
			r.s.prices[t] = prev
			return
		}
		delete(r.s.prices, t)
	})
	return nil
}
