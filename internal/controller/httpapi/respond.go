package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:    http.StatusBadRequest,
	apperr.KindAuthorization: http.StatusForbidden,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindStateConflict: http.StatusConflict,
	apperr.KindPolicy:        http.StatusUnprocessableEntity,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeError переводит ошибку сервиса в ответ
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		h.Logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrorBody(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := errorResponse{Error: appErr.Code, Message: err.Error()}

	var batchErr *apperr.BatchError
	if errors.As(err, &batchErr) {
		index := batchErr.Index
		resp.Index = &index
	}

	writeJSON(w, status, resp)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrValidation}, args...)...)
}

// decodeJSON читает тело запроса, неизвестные поля запрещены
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validationf("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, validationf("invalid %s %q", name, raw)
	}
	return &v, nil
}
