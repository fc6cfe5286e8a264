package broker

import (
	"context"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Relay читает все события шины и отправляет их в брокер.
// Ошибки брокера логируются, событие не повторяется.
type Relay struct {
	bus       *events.Bus
	publisher Publisher
	logger    *zap.Logger

	sub  events.Subscriber
	done chan struct{}
}

func NewRelay(bus *events.Bus, publisher Publisher, logger *zap.Logger) *Relay {
	return &Relay{
		bus:       bus,
		publisher: publisher,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start подписывается на шину до возврата, чтобы не потерять ранние события
func (r *Relay) Start(ctx context.Context) {
	r.sub = r.bus.Subscribe(events.AllTypes...)
	go r.run(ctx)
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.done)

	// после отмены ctx буфер всё равно дочитывается, таймаут ограничивает каждую публикацию
	ctx = context.WithoutCancel(ctx)

	for event := range r.sub {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := r.publisher.Publish(pubCtx, event)
		cancel()

		if err != nil {
			r.logger.Error("failed to relay event",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			continue
		}
		r.logger.Debug("event relayed", zap.String("event_type", string(event.Type)))
	}
}

// Stop отписывается, дожидается обработки буфера и закрывает брокер
func (r *Relay) Stop() error {
	if r.sub != nil {
		r.bus.Unsubscribe(r.sub)
		<-r.done
	}
	return r.publisher.Close()
}
