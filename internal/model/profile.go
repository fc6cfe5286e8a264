package model

import "time"

// Profile настройки пользователя, нужные ядру бронирования
type Profile struct {
	UserID             int64     `json:"user_id"`
	DefaultMeetingLink string    `json:"default_meeting_link"`
	UpiID              string    `json:"upi_id"`
	QrCodeURL          string    `json:"qr_code_url"`
	TelegramChatID     *int64    `json:"telegram_chat_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PriceRule цена и политика оплаты для типа интервью
type PriceRule struct {
	InterviewType       InterviewType `json:"interview_type"`
	Amount              int64         `json:"amount"`                // списывается при бронировании
	PostInterviewAmount int64         `json:"post_interview_amount"` // > 0 значит нужна оплата после интервью
	Currency            string        `json:"currency"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// RequiresPostPay нужен ли платёж после завершения интервью
func (p *PriceRule) RequiresPostPay() bool {
	return p.PostInterviewAmount > 0
}
