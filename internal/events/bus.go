// Package events внутрипроцессная шина доменных событий. Сервисы публикуют
// события после успешных переходов, подписчики (релей в брокер, телеграм)
// читают их из буферизованных каналов.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	SlotCreated        EventType = "slot.created"
	SlotDeleted        EventType = "slot.deleted"
	BookingRequested   EventType = "booking.requested"
	BookingConfirmed   EventType = "booking.confirmed"
	PaymentSubmitted   EventType = "payment.submitted"
	PaymentDecided     EventType = "payment.decided"
	PaymentRefunded    EventType = "payment.refunded"
	PaymentExpired     EventType = "payment.expired"
	InterviewStarted   EventType = "interview.started"
	InterviewCompleted EventType = "interview.completed"
	InterviewCancelled EventType = "interview.cancelled"
	FeedbackSubmitted  EventType = "feedback.submitted"
	RatingSubmitted    EventType = "rating.submitted"
)

// AllTypes все типы, на которые подписывается релей
var AllTypes = []EventType{
	SlotCreated, SlotDeleted,
	BookingRequested, BookingConfirmed,
	PaymentSubmitted, PaymentDecided, PaymentRefunded, PaymentExpired,
	InterviewStarted, InterviewCompleted, InterviewCancelled,
	FeedbackSubmitted, RatingSubmitted,
}

// Payload произвольные поля события
type Payload map[string]any

// Event конверт события
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Payload   `json:"payload"`
}

// Subscriber канал получателя
type Subscriber chan Event

const subscriberBuffer = 64

// Bus простая pubsub шина. Publish не блокируется: если буфер подписчика
// полон, событие для него теряется.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[EventType][]Subscriber),
		now:  time.Now,
	}
}

// Subscribe регистрирует подписчика на один или несколько типов
func (b *Bus) Subscribe(types ...EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subs[t] = append(b.subs[t], ch)
	}
	return ch
}

// Publish рассылает событие всем подписчикам типа
func (b *Bus) Publish(eventType EventType, payload Payload) {
	// RLock держим до конца рассылки, иначе Unsubscribe может закрыть канал под отправкой
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subs[eventType]
	if len(subs) == 0 {
		return
	}

	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: b.now().UTC(),
		Payload:    payload,
	}

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Unsubscribe снимает подписчика со всех типов и закрывает канал
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for t, subs := range b.subs {
		for i, candidate := range subs {
			if candidate == sub {
				b.subs[t] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
	}

	if found {
		close(sub)
	}
}
