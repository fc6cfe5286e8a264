package model

import (
	"time"

	"github.com/google/uuid"
)

type InterviewType string

const (
	InterviewTypeDSA          InterviewType = "DSA"
	InterviewTypeSystemDesign InterviewType = "SystemDesign"
)

// Длительности слотов по типу интервью
var interviewDurations = map[InterviewType]time.Duration{
	InterviewTypeDSA:          40 * time.Minute,
	InterviewTypeSystemDesign: 50 * time.Minute,
}

// MinLeadTime минимальный запас между созданием слота и его началом
const MinLeadTime = 24 * time.Hour

// Valid проверяет что тип интервью известен
func (t InterviewType) Valid() bool {
	_, ok := interviewDurations[t]
	return ok
}

// Duration возвращает фиксированную длительность слота
func (t InterviewType) Duration() time.Duration {
	return interviewDurations[t]
}

// DurationMinutes длительность в минутах
func (t InterviewType) DurationMinutes() int {
	return int(t.Duration() / time.Minute)
}

type Slot struct {
	ID             int64         `json:"id"`
	OwnerID        int64         `json:"owner_id"`
	InterviewType  InterviewType `json:"interview_type"`
	StartAt        time.Time     `json:"start_at"`
	EndAt          time.Time     `json:"end_at"`
	SourceTimeZone string        `json:"source_time_zone"`
	Price          int64         `json:"price"`
	Currency       string        `json:"currency"`
	IsBooked       bool          `json:"is_booked"`
	InterviewID    *int64        `json:"interview_id"` // заполняется после подтверждения брони
	SeriesID       *uuid.UUID    `json:"series_id"`    // общий id для слотов одной пачки
	CreatedAt      time.Time     `json:"created_at"`
}

// Overlaps проверяет пересечение полуоткрытых интервалов [start, end)
func (s *Slot) Overlaps(start, end time.Time) bool {
	return s.StartAt.Before(end) && start.Before(s.EndAt)
}

// SlotFilter фильтр для выборки свободных слотов
type SlotFilter struct {
	From          time.Time
	To            time.Time
	OwnerID       *int64
	InterviewType *InterviewType
}
