package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/storage"
)

// последние 4 цифры номера транзакции
var transactionIDPattern = regexp.MustCompile(`^\d{4}$`)

const multipartOverhead = 1 << 20

type proofRequest struct {
	PaymentID     int64  `json:"paymentId"`
	TransactionID string `json:"transactionId"`
	ProofAssetRef string `json:"proofAssetRef"`
}

type proofResponse struct {
	Payment   *model.Payment   `json:"payment,omitempty"`
	Interview *model.Interview `json:"interview,omitempty"`
}

type decisionRequest struct {
	Approve *bool `json:"approve"`
}

// readProof разбирает чек: multipart со скриншотом или JSON с готовой ссылкой.
// pathPaymentID > 0 перекрывает paymentId из тела.
func (h *Handler) readProof(r *http.Request, pathPaymentID int64) (proofRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var req proofRequest
	if mediaType == "multipart/form-data" {
		var err error
		if req, err = h.readMultipartProof(r, pathPaymentID); err != nil {
			return req, err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return req, err
	}

	if pathPaymentID > 0 {
		req.PaymentID = pathPaymentID
	}
	if req.PaymentID <= 0 {
		return req, validationf("paymentId is required")
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if !transactionIDPattern.MatchString(req.TransactionID) {
		return req, validationf("transactionId must be the last 4 digits of the transaction")
	}
	if strings.TrimSpace(req.ProofAssetRef) == "" {
		return req, validationf("payment proof is required")
	}
	return req, nil
}

func (h *Handler) readMultipartProof(r *http.Request, pathPaymentID int64) (proofRequest, error) {
	var req proofRequest

	r.Body = http.MaxBytesReader(nil, r.Body, h.ProofMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.ProofMaxBytes + multipartOverhead); err != nil {
		return req, validationf("invalid multipart form: %v", err)
	}

	req.PaymentID = pathPaymentID
	if raw := r.FormValue("paymentId"); raw != "" && pathPaymentID == 0 {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, validationf("invalid paymentId %q", raw)
		}
		req.PaymentID = id
	}
	req.TransactionID = strings.TrimSpace(r.FormValue("transactionId"))
	if req.PaymentID <= 0 {
		return req, validationf("paymentId is required")
	}
	if !transactionIDPattern.MatchString(req.TransactionID) {
		return req, validationf("transactionId must be the last 4 digits of the transaction")
	}

	data, contentType, err := h.readImage(r, "transactionScreenshot")
	if err != nil {
		return req, err
	}

	// Файл сохраняется только для платежа, который этот плательщик может подтвердить
	if err := h.checkProofUpload(r, req.PaymentID); err != nil {
		return req, err
	}

	ref, err := h.Store.Put(r.Context(), storage.ProofKey(req.PaymentID, contentType), bytes.NewReader(data), contentType)
	if err != nil {
		return req, err
	}
	req.ProofAssetRef = ref
	return req, nil
}

func (h *Handler) checkProofUpload(r *http.Request, paymentID int64) error {
	payment, err := h.Payments.Get(r.Context(), paymentID)
	if err != nil {
		return err
	}
	if payment.PayerID != identityFrom(r.Context()).ID {
		return fmt.Errorf("%w: only payer can submit proof", apperr.ErrForbidden)
	}
	if !payment.Status.CanSubmitProof() {
		return fmt.Errorf("%w: payment is %s", apperr.ErrInvalidState, payment.Status)
	}
	return nil
}

// readImage достаёт картинку из формы и проверяет размер и тип по содержимому
func (h *Handler) readImage(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", validationf("%s is required", field)
		}
		return nil, "", validationf("invalid %s: %v", field, err)
	}
	defer file.Close()

	if header.Size > h.ProofMaxBytes {
		return nil, "", validationf("%s exceeds %d bytes", field, h.ProofMaxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, h.ProofMaxBytes+1))
	if err != nil {
		return nil, "", validationf("read %s: %v", field, err)
	}
	if int64(len(data)) > h.ProofMaxBytes {
		return nil, "", validationf("%s exceeds %d bytes", field, h.ProofMaxBytes)
	}

	contentType := http.DetectContentType(data)
	if !storage.IsImage(contentType) {
		return nil, "", validationf("%s must be an image, got %s", field, contentType)
	}
	return data, contentType, nil
}

func (h *Handler) confirmBooking(w http.ResponseWriter, r *http.Request) {
	req, err := h.readProof(r, 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	interview, err := h.Bookings.ConfirmBooking(r.Context(), identityFrom(r.Context()), req.PaymentID, req.TransactionID, req.ProofAssetRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

// resubmitProof повторная отправка чека после отклонения.
// Предоплата идёт через подтверждение брони, постоплата напрямую.
func (h *Handler) resubmitProof(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.readProof(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	identity := identityFrom(ctx)

	payment, err := h.Payments.Get(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if payment.Kind == model.PaymentKindPreBooking {
		interview, err := h.Bookings.ConfirmBooking(ctx, identity, id, req.TransactionID, req.ProofAssetRef)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, proofResponse{Interview: interview})
		return
	}

	payment, err = h.Payments.SubmitProof(ctx, identity, id, req.TransactionID, req.ProofAssetRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proofResponse{Payment: payment})
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.Payments.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	identity := identityFrom(r.Context())
	if payment.PayerID != identity.ID && payment.PayeeID != identity.ID && !identity.IsAdmin() {
		h.writeError(w, r, apperr.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *Handler) listPendingPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Payments.ListPending(r.Context(), identityFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) decidePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Approve == nil {
		h.writeError(w, r, validationf("approve flag is required"))
		return
	}

	payment, err := h.Payments.Decide(r.Context(), identityFrom(r.Context()), id, *req.Approve)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *Handler) interviewPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payments, err := h.Interviews.Payments(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
