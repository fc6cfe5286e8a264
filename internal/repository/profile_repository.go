package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	*base.Repository
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{Repository: base.NewRepository(pool)}
}

// Get профиль пользователя
func (r *ProfileRepository) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	query := `
		SELECT user_id, default_meeting_link, upi_id, qr_code_url, telegram_chat_id, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p model.Profile
	err := r.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.DefaultMeetingLink,
		&p.UpiID,
		&p.QrCodeURL,
		&p.TelegramChatID,
		&p.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// GetByTelegramChat профиль по привязанному чату телеграма
func (r *ProfileRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*model.Profile, error) {
	query := `
		SELECT user_id, default_meeting_link, upi_id, qr_code_url, telegram_chat_id, updated_at
		FROM profiles
		WHERE telegram_chat_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var p model.Profile
	err := r.QueryRow(ctx, query, chatID).Scan(
		&p.UserID,
		&p.DefaultMeetingLink,
		&p.UpiID,
		&p.QrCodeURL,
		&p.TelegramChatID,
		&p.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile by telegram chat: %w", err)
	}

	return &p, nil
}

// Upsert создаёт или обновляет профиль
func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, default_meeting_link, upi_id, qr_code_url, telegram_chat_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			default_meeting_link = EXCLUDED.default_meeting_link,
			upi_id               = EXCLUDED.upi_id,
			qr_code_url          = EXCLUDED.qr_code_url,
			telegram_chat_id     = EXCLUDED.telegram_chat_id,
			updated_at           = EXCLUDED.updated_at
	`

	_, err := r.ExecAffected(ctx, query, p.UserID, p.DefaultMeetingLink, p.UpiID, p.QrCodeURL, p.TelegramChatID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
