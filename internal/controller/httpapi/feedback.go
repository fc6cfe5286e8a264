package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/interview_scheduler/internal/service"
)

type feedbackRequest struct {
	CodingAndDebugging  int    `json:"codingAndDebugging"`
	CommunicationScore  int    `json:"communicationScore"`
	ProblemSolvingScore int    `json:"problemSolvingScore"`
	Strengths           string `json:"strengths"`
	AreasOfImprovement  string `json:"areasOfImprovement"`
	AdditionalComments  string `json:"additionalComments"`
}

type ratingRequest struct {
	InterviewID int64  `json:"interviewId"`
	Rating      int    `json:"rating"`
	Feedback    string `json:"feedback"`
}

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID, err := pathID(r, "interviewId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	feedback, err := h.Feedback.SubmitFeedback(r.Context(), identityFrom(r.Context()), interviewID, service.FeedbackInput{
		CodingAndDebugging:  req.CodingAndDebugging,
		CommunicationScore:  req.CommunicationScore,
		ProblemSolvingScore: req.ProblemSolvingScore,
		Strengths:           req.Strengths,
		AreasOfImprovement:  req.AreasOfImprovement,
		AdditionalComments:  req.AdditionalComments,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *Handler) getFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID, err := pathID(r, "interviewId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	feedback, err := h.Feedback.GetFeedback(r.Context(), identityFrom(r.Context()), interviewID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *Handler) submitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rating, err := h.Feedback.SubmitRating(r.Context(), identityFrom(r.Context()), service.RatingInput{
		InterviewID: req.InterviewID,
		Rating:      req.Rating,
		Feedback:    req.Feedback,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (h *Handler) interviewerAverage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.Feedback.InterviewerAverage(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
