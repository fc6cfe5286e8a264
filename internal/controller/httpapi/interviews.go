package httpapi

import (
	"context"
	"net/http"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

type meetingLinkRequest struct {
	MeetingLink string `json:"meetingLink"`
}

type recordingRequest struct {
	RecordingURL string `json:"recordingUrl"`
}

func (h *Handler) listInterviews(w http.ResponseWriter, r *http.Request) {
	var status *model.InterviewStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := model.InterviewStatus(raw)
		if !s.Valid() {
			h.writeError(w, r, validationf("unknown status %q", raw))
			return
		}
		status = &s
	}

	interviews, err := h.Interviews.List(r.Context(), identityFrom(r.Context()), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interviews)
}

func (h *Handler) getInterview(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, h.Interviews.Get)
}

func (h *Handler) startInterview(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, h.Interviews.Start)
}

func (h *Handler) completeInterview(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, h.Interviews.Complete)
}

func (h *Handler) cancelInterview(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, h.Interviews.Cancel)
}

// interviewAction общий обработчик для операций вида (identity, id) -> interview
func (h *Handler) interviewAction(w http.ResponseWriter, r *http.Request, action func(context.Context, model.Identity, int64) (*model.Interview, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	interview, err := action(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (h *Handler) setMeetingLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req meetingLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	interview, err := h.Interviews.SetMeetingLink(r.Context(), identityFrom(r.Context()), id, req.MeetingLink)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (h *Handler) setRecording(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req recordingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	interview, err := h.Interviews.SetRecording(r.Context(), identityFrom(r.Context()), id, req.RecordingURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}
