package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PriceRepository struct {
	*base.Repository
}

func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{Repository: base.NewRepository(pool)}
}

// Get цена для типа интервью
func (r *PriceRepository) Get(ctx context.Context, interviewType model.InterviewType) (*model.PriceRule, error) {
	query := `
		SELECT interview_type, amount, post_interview_amount, currency, updated_at
		FROM price_rules
		WHERE interview_type = $1
	`

	var rule model.PriceRule
	err := r.QueryRow(ctx, query, interviewType).Scan(
		&rule.InterviewType,
		&rule.Amount,
		&rule.PostInterviewAmount,
		&rule.Currency,
		&rule.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get price rule: %w", err)
	}

	return &rule, nil
}

// List все цены
func (r *PriceRepository) List(ctx context.Context) ([]*model.PriceRule, error) {
	query := `
		SELECT interview_type, amount, post_interview_amount, currency, updated_at
		FROM price_rules
		ORDER BY interview_type
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list price rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.PriceRule
	for rows.Next() {
		var rule model.PriceRule
		if err := rows.Scan(&rule.InterviewType, &rule.Amount, &rule.PostInterviewAmount, &rule.Currency, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan price rule: %w", err)
		}
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Upsert создаёт или обновляет цену
func (r *PriceRepository) Upsert(ctx context.Context, rule *model.PriceRule) error {
	query := `
		INSERT INTO price_rules (interview_type, amount, post_interview_amount, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (interview_type) DO UPDATE SET
			amount                = EXCLUDED.amount,
			post_interview_amount = EXCLUDED.post_interview_amount,
			currency              = EXCLUDED.currency,
			updated_at            = EXCLUDED.updated_at
	`

	_, err := r.ExecAffected(ctx, query, rule.InterviewType, rule.Amount, rule.PostInterviewAmount, rule.Currency, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert price rule: %w", err)
	}

	return nil
}
