package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/recurrence"
	"github.com/Freeeeeet/interview_scheduler/internal/render"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
)

const localLayout = "2006-01-02T15:04"

type createSlotRequest struct {
	InterviewType model.InterviewType `json:"interviewType"`
	StartTime     string              `json:"startTime"`
	TimeZone      string              `json:"timeZone"`
}

type createBatchRequest struct {
	InterviewType model.InterviewType `json:"interviewType"`
	TimeZone      string              `json:"timeZone"`
	Slots         []string            `json:"slots"`
}

type createRecurringRequest struct {
	InterviewType model.InterviewType `json:"interviewType"`
	DayOfWeek     int                 `json:"dayOfWeek"`
	Hour          int                 `json:"hour"`
	TimeZone      string              `json:"timeZone"`
	Weeks         int                 `json:"weeks"`
}

// parseStart принимает RFC3339 с зоной или локальное "2006-01-02T15:04" в поясе loc
func parseStart(raw string, loc *time.Location, duration time.Duration) (recurrence.Occurrence, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		start := t.UTC()
		return recurrence.Occurrence{StartUTC: start, EndUTC: start.Add(duration)}, nil
	}

	local, err := time.Parse(localLayout, raw)
	if err != nil {
		return recurrence.Occurrence{}, validationf("invalid start time %q", raw)
	}
	return recurrence.On(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), loc, duration)
}

func (h *Handler) createSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := recurrence.LoadZone(req.TimeZone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	occ, err := parseStart(req.StartTime, loc, req.InterviewType.Duration())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	slot, err := h.Slots.CreateSlot(r.Context(), identityFrom(r.Context()), req.InterviewType, occ.StartUTC, req.TimeZone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	loc, err := recurrence.LoadZone(req.TimeZone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	occurrences := make([]recurrence.Occurrence, 0, len(req.Slots))
	for _, raw := range req.Slots {
		occ, err := parseStart(raw, loc, req.InterviewType.Duration())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		occurrences = append(occurrences, occ)
	}

	slots, err := h.Slots.CreateBatch(r.Context(), identityFrom(r.Context()), req.InterviewType, occurrences, req.TimeZone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slots)
}

func (h *Handler) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	slots, err := h.Slots.CreateRecurring(r.Context(), identityFrom(r.Context()), serviceRecurring(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slots)
}

func serviceRecurring(req createRecurringRequest) service.RecurringInput {
	return service.RecurringInput{
		InterviewType: req.InterviewType,
		Weekday:       time.Weekday(req.DayOfWeek),
		Hour:          req.Hour,
		TimeZone:      req.TimeZone,
		Weeks:         req.Weeks,
	}
}

// parseDateRange startDate/endDate как дата (endDate включительно) или RFC3339
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time

	if raw := r.URL.Query().Get("startDate"); raw != "" {
		t, err := parseDate(raw, false)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		t, err := parseDate(raw, true)
		if err != nil {
			return from, to, err
		}
		to = t
	}
	return from, to, nil
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, validationf("invalid date %q", raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func queryInterviewType(r *http.Request) *model.InterviewType {
	raw := strings.TrimSpace(r.URL.Query().Get("interviewType"))
	if raw == "" {
		return nil
	}
	t := model.InterviewType(raw)
	return &t
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// прошедшие слоты не предлагаем
	if now := h.Clock.Now().UTC(); from.Before(now) {
		from = now
	}
	ownerID, err := queryInt64(r, "interviewerId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	slots, err := h.Slots.ListAvailable(r.Context(), model.SlotFilter{
		From:          from,
		To:            to,
		OwnerID:       ownerID,
		InterviewType: queryInterviewType(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) listMySlots(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if from.IsZero() {
		from = h.Clock.Now().UTC()
	}
	if to.IsZero() {
		to = from.AddDate(0, 3, 0)
	}

	slots, err := h.Slots.ListOwned(r.Context(), identityFrom(r.Context()), from, to, queryInterviewType(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// myWeekImage неделя интервьюера картинкой; ?date=2006-01-02&timeZone=...
func (h *Handler) myWeekImage(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()

	loc := time.UTC
	if zone := r.URL.Query().Get("timeZone"); zone != "" {
		var err error
		if loc, err = recurrence.LoadZone(zone); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	date := now.In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			h.writeError(w, r, validationf("invalid date %q", raw))
			return
		}
		date = t
	}

	from, to := render.WeekRange(date)
	slots, err := h.Slots.ListOwned(r.Context(), identityFrom(r.Context()), from.UTC(), to.UTC(), nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	png, err := render.RenderWeek(render.Week{Date: date, Location: loc, Now: now, Slots: slots})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Slots.DeleteSlot(r.Context(), identityFrom(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bookSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	details, err := h.Bookings.BookSlot(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, details)
}
