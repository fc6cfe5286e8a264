package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"go.uber.org/zap"
)

const (
	minScore  = 1
	maxScore  = 10
	minRating = 1
	maxRating = 5
)

// FeedbackService отзывы интервьюеров и оценки кандидатов
type FeedbackService struct {
	feedback   FeedbackRepository
	ratings    RatingRepository
	interviews InterviewRepository
	events     EventPublisher
	clock      TimeProvider
	logger     *zap.Logger
}

func NewFeedbackService(
	feedback FeedbackRepository,
	ratings RatingRepository,
	interviews InterviewRepository,
	publisher EventPublisher,
	clock TimeProvider,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedback:   feedback,
		ratings:    ratings,
		interviews: interviews,
		events:     publisher,
		clock:      clock,
		logger:     logger,
	}
}

type FeedbackInput struct {
	CodingAndDebugging  int
	CommunicationScore  int
	ProblemSolvingScore int
	Strengths           string
	AreasOfImprovement  string
	AdditionalComments  string
}

func (in FeedbackInput) validate() error {
	scores := []struct {
		name  string
		value int
	}{
		{"codingAndDebugging", in.CodingAndDebugging},
		{"communicationScore", in.CommunicationScore},
		{"problemSolvingScore", in.ProblemSolvingScore},
	}
	for _, score := range scores {
		if score.value < minScore || score.value > maxScore {
			return fmt.Errorf("%w: %s must be %d-%d", apperr.ErrValidation, score.name, minScore, maxScore)
		}
	}
	if strings.TrimSpace(in.Strengths) == "" {
		return fmt.Errorf("%w: strengths are required", apperr.ErrValidation)
	}
	if strings.TrimSpace(in.AreasOfImprovement) == "" {
		return fmt.Errorf("%w: areas of improvement are required", apperr.ErrValidation)
	}
	return nil
}

// SubmitFeedback создаёт или перезаписывает отзыв интервьюера
func (s *FeedbackService) SubmitFeedback(ctx context.Context, identity model.Identity, interviewID int64, input FeedbackInput) (*model.Feedback, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	interview, err := s.loadInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview.InterviewerID != identity.ID {
		return nil, fmt.Errorf("%w: only interviewer can leave feedback", apperr.ErrForbidden)
	}
	if interview.Status != model.InterviewStatusInProgress && interview.Status != model.InterviewStatusCompleted {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	feedback := &model.Feedback{
		InterviewID:         interviewID,
		AuthorID:            identity.ID,
		CodingAndDebugging:  input.CodingAndDebugging,
		CommunicationScore:  input.CommunicationScore,
		ProblemSolvingScore: input.ProblemSolvingScore,
		Strengths:           strings.TrimSpace(input.Strengths),
		AreasOfImprovement:  strings.TrimSpace(input.AreasOfImprovement),
		AdditionalComments:  strings.TrimSpace(input.AdditionalComments),
		UpdatedAt:           s.clock.Now().UTC(),
	}

	if err := s.feedback.Upsert(ctx, feedback); err != nil {
		return nil, fmt.Errorf("upsert feedback: %w", err)
	}

	s.logger.Info("Feedback submitted",
		zap.Int64("interview_id", interviewID),
		zap.Int64("author_id", identity.ID),
	)
	s.events.Publish(events.FeedbackSubmitted, events.Payload{
		"interview_id": interviewID,
		"author_id":    identity.ID,
		"candidate_id": interview.CandidateID,
	})

	return feedback, nil
}

// GetFeedback отзыв по интервью для участников и админа
func (s *FeedbackService) GetFeedback(ctx context.Context, identity model.Identity, interviewID int64) (*model.Feedback, error) {
	interview, err := s.loadInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !interview.IsParticipant(identity.ID) && !identity.IsAdmin() {
		return nil, apperr.ErrForbidden
	}

	feedback, err := s.feedback.GetByInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	if feedback == nil {
		return nil, apperr.ErrFeedbackNotFound
	}
	return feedback, nil
}

type RatingInput struct {
	InterviewID int64
	Rating      int
	Feedback    string
}

// SubmitRating кандидат оценивает завершённое интервью, один раз
func (s *FeedbackService) SubmitRating(ctx context.Context, identity model.Identity, input RatingInput) (*model.Rating, error) {
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, fmt.Errorf("%w: rating must be %d-%d", apperr.ErrValidation, minRating, maxRating)
	}

	interview, err := s.loadInterview(ctx, input.InterviewID)
	if err != nil {
		return nil, err
	}
	if interview.CandidateID != identity.ID {
		return nil, fmt.Errorf("%w: only candidate can rate the interview", apperr.ErrForbidden)
	}
	if interview.Status != model.InterviewStatusCompleted {
		return nil, fmt.Errorf("%w: interview is %s", apperr.ErrInvalidState, interview.Status)
	}

	existing, err := s.ratings.GetByInterview(ctx, input.InterviewID)
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	if existing != nil {
		return nil, apperr.ErrDuplicateRating
	}

	rating := &model.Rating{
		InterviewID:   interview.ID,
		CandidateID:   interview.CandidateID,
		InterviewerID: interview.InterviewerID,
		Rating:        input.Rating,
		Feedback:      strings.TrimSpace(input.Feedback),
	}

	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.ErrDuplicateRating
		}
		return nil, fmt.Errorf("create rating: %w", err)
	}

	s.logger.Info("Rating submitted",
		zap.Int64("interview_id", interview.ID),
		zap.Int64("interviewer_id", interview.InterviewerID),
		zap.Int("rating", rating.Rating),
	)
	s.events.Publish(events.RatingSubmitted, events.Payload{
		"interview_id":   interview.ID,
		"interviewer_id": interview.InterviewerID,
		"rating":         rating.Rating,
	})

	return rating, nil
}

// InterviewerAverage средняя оценка интервьюера
func (s *FeedbackService) InterviewerAverage(ctx context.Context, interviewerID int64) (*model.RatingSummary, error) {
	summary, err := s.ratings.SummaryForInterviewer(ctx, interviewerID)
	if err != nil {
		return nil, fmt.Errorf("get rating summary: %w", err)
	}
	return summary, nil
}

func (s *FeedbackService) loadInterview(ctx context.Context, interviewID int64) (*model.Interview, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	if interview == nil {
		return nil, apperr.ErrInterviewNotFound
	}
	return interview, nil
}
