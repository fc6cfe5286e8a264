package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

// PaymentExpirer переводит зависшие предоплаты в expired
type PaymentExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) ([]*model.Payment, error)
}

// Scheduler фоновая задача истечения неоплаченных броней
type Scheduler struct {
	expirer  PaymentExpirer
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler ttl - сколько pending платёж живёт, interval - как часто проверять
func NewScheduler(expirer PaymentExpirer, ttl, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает задачу в отдельной горутине
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting payment expiry scheduler",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval),
	)

	go s.run(ctx)
}

// Stop останавливает задачу и ждёт её завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping payment expiry scheduler")
	close(s.stopChan)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	// Первый проход сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Payment expiry task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Payment expiry task cancelled")
			return
		}
	}
}

// sweep один проход: всё, что pending дольше ttl, истекает
func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.ttl)

	expired, err := s.expirer.ExpireStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to expire pending payments", zap.Error(err))
		return
	}

	if len(expired) > 0 {
		s.logger.Info("Pending payments expired", zap.Int("count", len(expired)), zap.Time("cutoff", cutoff))
	}
}
