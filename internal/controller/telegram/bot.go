package telegram

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/render"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotSender Sender поверх go-telegram/bot
type BotSender struct {
	bot *bot.Bot
}

func NewBotSender(b *bot.Bot) *BotSender {
	return &BotSender{bot: b}
}

func (s *BotSender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *BotSender) SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	_, err := s.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption: caption,
	})
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// ChatProfiles поиск пользователя по чату
type ChatProfiles interface {
	ByTelegramChat(ctx context.Context, chatID int64) (*model.Profile, error)
}

// ScheduleSource слоты владельца за интервал
type ScheduleSource interface {
	Schedule(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.Slot, error)
}

// Commands обработчики команд бота
type Commands struct {
	profiles ChatProfiles
	slots    ScheduleSource
	sender   Sender
	now      func() time.Time
	logger   *zap.Logger
}

func NewCommands(profiles ChatProfiles, slots ScheduleSource, sender Sender, logger *zap.Logger) *Commands {
	return &Commands{
		profiles: profiles,
		slots:    slots,
		sender:   sender,
		now:      time.Now,
		logger:   logger,
	}
}

// Register регистрирует команды
func (c *Commands) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, c.handleWeek)
}

func (c *Commands) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	text := fmt.Sprintf("👋 Your chat id is %d.\nSave it as telegramChatId in your profile to receive notifications.", chatID)
	if err := c.sender.SendText(ctx, chatID, text); err != nil {
		c.logger.Error("Failed to send start message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (c *Commands) handleWeek(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.SendWeek(ctx, update.Message.Chat.ID)
}

// SendWeek отправляет в чат картинку текущей недели привязанного интервьюера
func (c *Commands) SendWeek(ctx context.Context, chatID int64) {
	profile, err := c.profiles.ByTelegramChat(ctx, chatID)
	if err != nil {
		c.logger.Error("Failed to find profile by chat", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, chatID, "❌ Something went wrong, try again later.")
		return
	}
	if profile == nil {
		c.reply(ctx, chatID, "❌ This chat is not linked to a profile. Use /start to get the chat id.")
		return
	}

	now := c.now()
	from, to := render.WeekRange(now.UTC())

	slots, err := c.slots.Schedule(ctx, profile.UserID, from, to)
	if err != nil {
		c.logger.Error("Failed to load schedule", zap.Int64("user_id", profile.UserID), zap.Error(err))
		c.reply(ctx, chatID, "❌ Something went wrong, try again later.")
		return
	}

	image, err := render.RenderWeek(render.Week{Date: now, Location: time.UTC, Now: now, Slots: slots})
	if err != nil {
		c.logger.Error("Failed to render week", zap.Int64("user_id", profile.UserID), zap.Error(err))
		c.reply(ctx, chatID, "❌ Something went wrong, try again later.")
		return
	}

	caption := fmt.Sprintf("Your week: %d slot(s), times in UTC", len(slots))
	if err := c.sender.SendPhoto(ctx, chatID, "week.png", image, caption); err != nil {
		c.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (c *Commands) reply(ctx context.Context, chatID int64, text string) {
	if err := c.sender.SendText(ctx, chatID, text); err != nil {
		c.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
