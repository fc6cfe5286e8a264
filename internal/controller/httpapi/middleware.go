package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/apperr"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey struct{}

func withIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// identityFrom Identity, положенная authenticate
func identityFrom(ctx context.Context) model.Identity {
	identity, _ := ctx.Value(ctxKey{}).(model.Identity)
	return identity
}

// authenticate проверяет Bearer токен
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			writeErrorBody(w, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token required")
			return
		}

		identity, err := h.Auth.Parse(strings.TrimSpace(token))
		if err != nil {
			h.Logger.Debug("Rejected token", zap.Error(err))
			writeErrorBody(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// accessLog пишет одну строку на запрос
func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}

		if status >= http.StatusInternalServerError {
			h.Logger.Error("HTTP request", fields...)
			return
		}
		h.Logger.Info("HTTP request", fields...)
	})
}

// requireAdmin для админских маршрутов
func requireAdmin(identity model.Identity) error {
	if !identity.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}
