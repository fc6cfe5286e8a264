package model

import "time"

// Feedback отзыв интервьюера, один на интервью
type Feedback struct {
	InterviewID         int64     `json:"interview_id"`
	AuthorID            int64     `json:"author_id"`
	CodingAndDebugging  int       `json:"coding_and_debugging"`
	CommunicationScore  int       `json:"communication_score"`
	ProblemSolvingScore int       `json:"problem_solving_score"`
	Strengths           string    `json:"strengths"`
	AreasOfImprovement  string    `json:"areas_of_improvement"`
	AdditionalComments  string    `json:"additional_comments"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Rating оценка интервьюера кандидатом
type Rating struct {
	InterviewID   int64     `json:"interview_id"`
	CandidateID   int64     `json:"candidate_id"`
	InterviewerID int64     `json:"interviewer_id"`
	Rating        int       `json:"rating"`
	Feedback      string    `json:"feedback"`
	CreatedAt     time.Time `json:"created_at"`
}

// RatingSummary средняя оценка интервьюера
type RatingSummary struct {
	InterviewerID int64   `json:"interviewer_id"`
	Average       float64 `json:"average"`
	Count         int     `json:"count"`
}
