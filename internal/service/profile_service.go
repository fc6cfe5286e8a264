package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"go.uber.org/zap"
)

type ProfileService struct {
	repo   ProfileRepository
	cache  ProfileCache
	clock  TimeProvider
	logger *zap.Logger
}

func NewProfileService(repo ProfileRepository, cache ProfileCache, clock TimeProvider, logger *zap.Logger) *ProfileService {
	if cache == nil {
		cache = noopProfileCache{}
	}
	return &ProfileService{
		repo:   repo,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

// ProfileInput изменяемые поля профиля, nil значит "не трогать"
type ProfileInput struct {
	DefaultMeetingLink *string
	UpiID              *string
	QrCodeURL          *string
	TelegramChatID     *int64
}

// Lookup возвращает профиль пользователя: сначала кэш, потом хранилище.
// Отсутствующий профиль возвращается пустым, а не ошибкой.
func (s *ProfileService) Lookup(ctx context.Context, userID int64) (*model.Profile, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Profile cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return &model.Profile{UserID: userID}, nil
	}

	if err := s.cache.Set(ctx, profile); err != nil {
		s.logger.Warn("Profile cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	return profile, nil
}

// ByTelegramChat профиль, привязанный к чату; nil если чат не привязан
func (s *ProfileService) ByTelegramChat(ctx context.Context, chatID int64) (*model.Profile, error) {
	profile, err := s.repo.GetByTelegramChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get profile by telegram chat: %w", err)
	}
	return profile, nil
}

// Get профиль вызывающего пользователя
func (s *ProfileService) Get(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	return s.Lookup(ctx, identity.ID)
}

// Update частично обновляет профиль вызывающего пользователя
func (s *ProfileService) Update(ctx context.Context, identity model.Identity, input ProfileInput) (*model.Profile, error) {
	profile, err := s.repo.Get(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		profile = &model.Profile{UserID: identity.ID}
	}

	if input.DefaultMeetingLink != nil {
		link := strings.TrimSpace(*input.DefaultMeetingLink)
		if link != "" {
			if err := ValidateURL(link); err != nil {
				return nil, fmt.Errorf("%w: default meeting link: %v", apperr.ErrValidation, err)
			}
		}
		profile.DefaultMeetingLink = link
	}
	if input.UpiID != nil {
		profile.UpiID = strings.TrimSpace(*input.UpiID)
	}
	if input.QrCodeURL != nil {
		qr := strings.TrimSpace(*input.QrCodeURL)
		if qr != "" {
			if err := ValidateURL(qr); err != nil {
				return nil, fmt.Errorf("%w: qr code url: %v", apperr.ErrValidation, err)
			}
		}
		profile.QrCodeURL = qr
	}
	if input.TelegramChatID != nil {
		chatID := *input.TelegramChatID
		profile.TelegramChatID = &chatID
	}

	profile.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	if err := s.cache.Delete(ctx, identity.ID); err != nil {
		s.logger.Warn("Profile cache invalidation failed", zap.Int64("user_id", identity.ID), zap.Error(err))
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", identity.ID))

	return profile, nil
}

// ValidateURL принимает только абсолютные http(s) ссылки
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("url must be absolute")
	}
	return nil
}
