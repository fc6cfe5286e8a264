package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	calls   chan struct{}
}

func (e *recordingExpirer) ExpireStale(_ context.Context, cutoff time.Time) ([]*model.Payment, error) {
	e.mu.Lock()
	e.cutoffs = append(e.cutoffs, cutoff)
	e.mu.Unlock()

	select {
	case e.calls <- struct{}{}:
	default:
	}
	return []*model.Payment{{ID: 1}}, nil
}

func TestScheduler_SweepsWithTTLCutoff(t *testing.T) {
	expirer := &recordingExpirer{calls: make(chan struct{}, 16)}
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	s := NewScheduler(expirer, 2*time.Hour, 10*time.Millisecond, zap.NewNop())
	s.now = func() time.Time { return now }

	s.Start(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-expirer.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("sweep did not run")
		}
	}
	s.Stop()

	expirer.mu.Lock()
	defer expirer.mu.Unlock()
	require.GreaterOrEqual(t, len(expirer.cutoffs), 2)
	for _, cutoff := range expirer.cutoffs {
		assert.Equal(t, now.Add(-2*time.Hour), cutoff)
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	expirer := &recordingExpirer{calls: make(chan struct{}, 16)}
	ctx, cancel := context.WithCancel(context.Background())

	s := NewScheduler(expirer, time.Hour, time.Hour, zap.NewNop())
	s.Start(ctx)
	<-expirer.calls

	cancel()

	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
