package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPricingService_Upsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dsa, err := env.pricing.Get(ctx, model.InterviewTypeDSA)
	require.NoError(t, err)
	assert.Equal(t, int64(500), dsa.Amount)
	assert.Equal(t, "INR", dsa.Currency)

	sd, err := env.pricing.Get(ctx, model.InterviewTypeSystemDesign)
	require.NoError(t, err)
	assert.Equal(t, "INR", sd.Currency)
	assert.Equal(t, int64(300), sd.PostInterviewAmount)

	updated, err := env.pricing.Upsert(ctx, admin, model.PriceRule{InterviewType: model.InterviewTypeDSA, Amount: 650, Currency: " usd "})
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, env.clock.Now(), updated.UpdatedAt)

	rules, err := env.pricing.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestPricingService_UpsertRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity model.Identity
		rule     model.PriceRule
		want     error
	}{
		{"not admin", interviewer, model.PriceRule{InterviewType: model.InterviewTypeDSA, Amount: 100}, apperr.ErrForbidden},
		{"unknown type", admin, model.PriceRule{InterviewType: "Behavioural", Amount: 100}, apperr.ErrValidation},
		{"zero amount", admin, model.PriceRule{InterviewType: model.InterviewTypeDSA}, apperr.ErrValidation},
		{"negative post amount", admin, model.PriceRule{InterviewType: model.InterviewTypeDSA, Amount: 100, PostInterviewAmount: -1}, apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pricing.Upsert(ctx, tt.identity, tt.rule)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPricingService_GetMissing(t *testing.T) {
	store := memory.NewStore()
	svc := NewPricingService(store.Prices(), "INR", &fakeClock{}, zap.NewNop())

	_, err := svc.Get(context.Background(), model.InterviewTypeDSA)
	assert.ErrorIs(t, err, apperr.ErrPriceNotFound)
}
