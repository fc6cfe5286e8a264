package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

// PricingService таблица цен по типам интервью
type PricingService struct {
	repo            PriceRepository
	defaultCurrency string
	clock           TimeProvider
	logger          *zap.Logger
}

func NewPricingService(repo PriceRepository, defaultCurrency string, clock TimeProvider, logger *zap.Logger) *PricingService {
	return &PricingService{
		repo:            repo,
		defaultCurrency: defaultCurrency,
		clock:           clock,
		logger:          logger,
	}
}

// Get цена для типа интервью, ErrPriceNotFound если не настроена
func (s *PricingService) Get(ctx context.Context, interviewType model.InterviewType) (*model.PriceRule, error) {
	rule, err := s.repo.Get(ctx, interviewType)
	if err != nil {
		return nil, fmt.Errorf("get price rule: %w", err)
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrPriceNotFound, interviewType)
	}
	return rule, nil
}

func (s *PricingService) List(ctx context.Context) ([]*model.PriceRule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list price rules: %w", err)
	}
	return rules, nil
}

// Upsert задаёт цену для типа, только для админа
func (s *PricingService) Upsert(ctx context.Context, identity model.Identity, rule model.PriceRule) (*model.PriceRule, error) {
	if !identity.IsAdmin() {
		return nil, fmt.Errorf("%w: only admin can change prices", apperr.ErrForbidden)
	}
	if !rule.InterviewType.Valid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", apperr.ErrValidation, rule.InterviewType)
	}
	if rule.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	}
	if rule.PostInterviewAmount < 0 {
		return nil, fmt.Errorf("%w: post-interview amount must not be negative", apperr.ErrValidation)
	}

	rule.Currency = strings.ToUpper(strings.TrimSpace(rule.Currency))
	if rule.Currency == "" {
		rule.Currency = s.defaultCurrency
	}
	rule.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Upsert(ctx, &rule); err != nil {
		return nil, fmt.Errorf("upsert price rule: %w", err)
	}

	s.logger.Info("Price updated",
		zap.String("interview_type", string(rule.InterviewType)),
		zap.Int64("amount", rule.Amount),
		zap.Int64("post_interview_amount", rule.PostInterviewAmount),
		zap.String("currency", rule.Currency),
	)

	return &rule, nil
}
