package model

import "time"

type InterviewStatus string

const (
	InterviewStatusScheduled  InterviewStatus = "scheduled"
	InterviewStatusInProgress InterviewStatus = "in-progress"
	InterviewStatusCompleted  InterviewStatus = "completed"
	InterviewStatusCancelled  InterviewStatus = "cancelled"
)

// Valid проверяет что статус известен
func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewStatusScheduled, InterviewStatusInProgress, InterviewStatusCompleted, InterviewStatusCancelled:
		return true
	}
	return false
}

// IsTerminal completed и cancelled конечные
func (s InterviewStatus) IsTerminal() bool {
	return s == InterviewStatusCompleted || s == InterviewStatusCancelled
}

type Interview struct {
	ID              int64           `json:"id"`
	SlotID          int64           `json:"slot_id"`
	CandidateID     int64           `json:"candidate_id"`
	InterviewerID   int64           `json:"interviewer_id"`
	InterviewType   InterviewType   `json:"interview_type"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DurationMinutes int             `json:"duration_minutes"`
	Status          InterviewStatus `json:"status"`
	MeetingLink     *string         `json:"meeting_link"`
	RecordingURL    *string         `json:"recording_url"`
	CancelledBy     *int64          `json:"cancelled_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsParticipant кандидат или интервьюер этого интервью
func (i *Interview) IsParticipant(userID int64) bool {
	return i.CandidateID == userID || i.InterviewerID == userID
}
