// Package recurrence превращает недельное правило (день недели, час, часовой пояс)
// в последовательность UTC интервалов.
//
// Шаг между вхождениями считается в локальном календаре пояса через time.Date,
// поэтому один и тот же час по местному времени сохраняется при переходе на
// летнее/зимнее время, даже если разница в UTC не равна 168 часам.
package recurrence

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
)

const (
	daysInWeek = 7

	// MaxWeeklyAdvances ограничивает поиск первого вхождения двумя годами
	MaxWeeklyAdvances = 105

	// MaxCount максимальное количество вхождений в одной серии
	MaxCount = 104
)

// Occurrence один интервал в UTC
type Occurrence struct {
	StartUTC time.Time `json:"startUtc"`
	EndUTC   time.Time `json:"endUtc"`
}

// WeeklyRule правило недельного повторения
type WeeklyRule struct {
	Weekday  time.Weekday // 0 = Sunday, 6 = Saturday
	Hour     int          // 0-23
	Location *time.Location
	LeadTime time.Duration
	Count    int
	Duration time.Duration
}

// Validate проверяет поля правила
func (r WeeklyRule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday must be 0-6, got %d", apperr.ErrValidation, r.Weekday)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("%w: hour must be 0-23, got %d", apperr.ErrValidation, r.Hour)
	}
	if r.Location == nil {
		return fmt.Errorf("%w: time zone is required", apperr.ErrValidation)
	}
	if r.LeadTime < 0 {
		return fmt.Errorf("%w: lead time must not be negative", apperr.ErrValidation)
	}
	if r.Count < 1 || r.Count > MaxCount {
		return fmt.Errorf("%w: count must be 1-%d, got %d", apperr.ErrValidation, MaxCount, r.Count)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", apperr.ErrValidation)
	}
	return nil
}

// Weekly генерирует Count вхождений начиная с первого, которое не раньше now+LeadTime
func Weekly(now time.Time, rule WeeklyRule) ([]Occurrence, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	local := now.In(rule.Location)
	floor := now.Add(rule.LeadTime)

	// Ближайший день с нужным днём недели (сегодня тоже подходит)
	daysUntil := (int(rule.Weekday) - int(local.Weekday()) + daysInWeek) % daysInWeek
	year, month, day := local.Year(), local.Month(), local.Day()+daysUntil

	// Сдвигаем на целые недели пока не пройдём порог, это же закрывает случай "сегодня, но час уже прошёл"
	weeks := 0
	for at(year, month, day, weeks, rule).Before(floor) {
		weeks++
		if weeks > MaxWeeklyAdvances {
			return nil, fmt.Errorf("%w: weekday=%d hour=%d lead=%s", apperr.ErrInvalidLeadTime, rule.Weekday, rule.Hour, rule.LeadTime)
		}
	}

	occurrences := make([]Occurrence, 0, rule.Count)
	for i := 0; i < rule.Count; i++ {
		start := at(year, month, day, weeks+i, rule).UTC()
		occurrences = append(occurrences, Occurrence{
			StartUTC: start,
			EndUTC:   start.Add(rule.Duration),
		})
	}

	return occurrences, nil
}

// at локальная дата + weeks недель в часовом поясе правила
func at(year int, month time.Month, day, weeks int, rule WeeklyRule) time.Time {
	return time.Date(year, month, day+weeks*daysInWeek, rule.Hour, 0, 0, 0, rule.Location)
}

// On одно вхождение на конкретную календарную дату
func On(year int, month time.Month, day, hour, minute int, loc *time.Location, duration time.Duration) (Occurrence, error) {
	if loc == nil {
		return Occurrence{}, fmt.Errorf("%w: time zone is required", apperr.ErrValidation)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Occurrence{}, fmt.Errorf("%w: invalid time %02d:%02d", apperr.ErrValidation, hour, minute)
	}
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return Occurrence{}, fmt.Errorf("%w: invalid date %d-%02d-%02d", apperr.ErrValidation, year, month, day)
	}

	start := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if start.Day() != day {
		return Occurrence{}, fmt.Errorf("%w: invalid date %d-%02d-%02d", apperr.ErrValidation, year, month, day)
	}

	start = start.UTC()
	return Occurrence{StartUTC: start, EndUTC: start.Add(duration)}, nil
}

// LoadZone загружает IANA пояс, пустое имя считается ошибкой
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: time zone is required", apperr.ErrValidation)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", apperr.ErrValidation, name)
	}
	return loc, nil
}
