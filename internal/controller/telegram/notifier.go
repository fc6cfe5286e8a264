// Package telegram уведомления участников через телеграм бота и команда /week.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

// Sender отправка сообщений в чат
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// ProfileLookup профиль пользователя с chat id
type ProfileLookup interface {
	Lookup(ctx context.Context, userID int64) (*model.Profile, error)
}

var notifiedEvents = []events.EventType{
	events.PaymentSubmitted,
	events.PaymentDecided,
	events.BookingConfirmed,
	events.InterviewCancelled,
	events.PaymentExpired,
}

// Notifier слушает шину и пишет участникам, у которых привязан чат
type Notifier struct {
	bus      *events.Bus
	profiles ProfileLookup
	sender   Sender
	logger   *zap.Logger

	sub  events.Subscriber
	done chan struct{}
}

func NewNotifier(bus *events.Bus, profiles ProfileLookup, sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{
		bus:      bus,
		profiles: profiles,
		sender:   sender,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (n *Notifier) Start(ctx context.Context) {
	n.sub = n.bus.Subscribe(notifiedEvents...)
	go n.run(ctx)
}

func (n *Notifier) Stop() {
	if n.sub == nil {
		return
	}
	n.bus.Unsubscribe(n.sub)
	<-n.done
}

func (n *Notifier) run(ctx context.Context) {
	defer close(n.done)

	for event := range n.sub {
		for _, msg := range messagesFor(event) {
			n.notify(ctx, msg.userID, msg.text)
		}
	}
}

type message struct {
	userID int64
	text   string
}

// messagesFor кому и что написать по событию
func messagesFor(event events.Event) []message {
	p := event.Payload

	switch event.Type {
	case events.PaymentSubmitted:
		return []message{{
			userID: int64Of(p["payee_id"]),
			text: fmt.Sprintf("💳 Payment #%d: proof submitted for %d %s.\nPlease verify it in the app.",
				int64Of(p["payment_id"]), int64Of(p["amount"]), p["currency"]),
		}}
	case events.PaymentDecided:
		verdict := "❌ rejected, please resubmit the proof"
		if approved, _ := p["approved"].(bool); approved {
			verdict = "✅ verified"
		}
		return []message{{
			userID: int64Of(p["payer_id"]),
			text:   fmt.Sprintf("Payment #%d %s.", int64Of(p["payment_id"]), verdict),
		}}
	case events.BookingConfirmed:
		text := fmt.Sprintf("📅 Interview #%d booked", int64Of(p["interview_id"]))
		if at, ok := p["scheduled_at"].(time.Time); ok {
			text += " for " + at.Format("02 Jan 2006 15:04 MST")
		}
		return []message{
			{userID: int64Of(p["interviewer_id"]), text: text + "."},
			{userID: int64Of(p["candidate_id"]), text: text + ". Payment is awaiting verification."},
		}
	case events.InterviewCancelled:
		text := fmt.Sprintf("🚫 Interview #%d was cancelled.", int64Of(p["interview_id"]))
		return []message{
			{userID: int64Of(p["interviewer_id"]), text: text},
			{userID: int64Of(p["candidate_id"]), text: text},
		}
	case events.PaymentExpired:
		return []message{{
			userID: int64Of(p["payer_id"]),
			text:   fmt.Sprintf("⌛ Payment #%d expired, the slot reservation was released.", int64Of(p["payment_id"])),
		}}
	}
	return nil
}

func (n *Notifier) notify(ctx context.Context, userID int64, text string) {
	if userID == 0 {
		return
	}

	profile, err := n.profiles.Lookup(ctx, userID)
	if err != nil {
		n.logger.Warn("Failed to load profile for notification", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if profile.TelegramChatID == nil {
		return
	}

	if err := n.sender.SendText(ctx, *profile.TelegramChatID, text); err != nil {
		n.logger.Error("Failed to send notification",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", *profile.TelegramChatID),
			zap.Error(err),
		)
	}
}

// int64Of payload приходит из шины с исходными типами
func int64Of(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}
