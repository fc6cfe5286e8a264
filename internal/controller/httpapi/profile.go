package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/Freeeeeet/interview_scheduler/internal/storage"
	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	DefaultMeetingLink *string `json:"defaultMeetingLink"`
	UpiID              *string `json:"upiId"`
	QrCodeURL          *string `json:"qrCodeUrl"`
	TelegramChatID     *int64  `json:"telegramChatId"`
}

type priceRequest struct {
	InterviewType       model.InterviewType `json:"interviewType"`
	Amount              int64               `json:"amount"`
	PostInterviewAmount int64               `json:"postInterviewAmount"`
	Currency            string              `json:"currency"`
}

// fileSource хранилище, которое само отдаёт содержимое (локальное)
type fileSource interface {
	Get(key string) ([]byte, string, bool)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Profiles.Get(r.Context(), identityFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.Profiles.Update(r.Context(), identityFrom(r.Context()), service.ProfileInput{
		DefaultMeetingLink: req.DefaultMeetingLink,
		UpiID:              req.UpiID,
		QrCodeURL:          req.QrCodeURL,
		TelegramChatID:     req.TelegramChatID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// uploadQRCode загружает картинку QR кода и записывает её адрес в профиль
func (h *Handler) uploadQRCode(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsInterviewer() && !identity.IsAdmin() {
		h.writeError(w, r, fmt.Errorf("%w: only interviewers receive payments", apperr.ErrForbidden))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.ProofMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.ProofMaxBytes + multipartOverhead); err != nil {
		h.writeError(w, r, validationf("invalid multipart form: %v", err))
		return
	}

	data, contentType, err := h.readImage(r, "qrCode")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key, err := h.Store.Put(r.Context(), storage.QRKey(identity.ID, contentType), bytes.NewReader(data), contentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	url := h.Store.URL(key)
	profile, err := h.Profiles.Update(r.Context(), identity, service.ProfileInput{QrCodeURL: &url})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) listPrices(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(identityFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}

	prices, err := h.Pricing.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

func (h *Handler) upsertPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rule, err := h.Pricing.Upsert(r.Context(), identityFrom(r.Context()), model.PriceRule{
		InterviewType:       req.InterviewType,
		Amount:              req.Amount,
		PostInterviewAmount: req.PostInterviewAmount,
		Currency:            req.Currency,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// serveFile отдаёт объект из локального хранилища
func (h *Handler) serveFile(files fileSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

		data, contentType, ok := files.Get(key)
		if !ok {
			writeErrorBody(w, http.StatusNotFound, "NOT_FOUND", "file not found")
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
