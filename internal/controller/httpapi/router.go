// Package httpapi JSON API поверх chi. Каждый запрос проходит проверку JWT,
// из которого берётся model.Identity для вызова сервисов.
package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/metrics"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/Freeeeeet/interview_scheduler/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps всё, что нужно обработчикам
type Deps struct {
	Slots      *service.SlotService
	Bookings   *service.BookingService
	Payments   *service.PaymentService
	Interviews *service.InterviewService
	Feedback   *service.FeedbackService
	Profiles   *service.ProfileService
	Pricing    *service.PricingService

	Auth    *auth.Manager
	Store   storage.Store
	Metrics *metrics.Metrics
	Clock   service.TimeProvider
	Logger  *zap.Logger

	ProofMaxBytes int64
}

type Handler struct {
	Deps
}

// NewRouter собирает маршруты API
func NewRouter(deps Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = service.RealTimeProvider{}
	}
	h := &Handler{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/slots", func(r chi.Router) {
			r.Post("/", h.createSlot)
			r.Post("/batch", h.createBatch)
			r.Post("/recurring", h.createRecurring)
			r.Get("/", h.listSlots)
			r.Get("/mine", h.listMySlots)
			r.Get("/mine/week.png", h.myWeekImage)
			r.Delete("/{id}", h.deleteSlot)
			r.Post("/{id}/book", h.bookSlot)
		})

		r.Post("/bookings/confirm", h.confirmBooking)

		r.Route("/payments", func(r chi.Router) {
			r.Get("/pending", h.listPendingPayments)
			r.Get("/interview/{id}", h.interviewPayments)
			r.Get("/{id}", h.getPayment)
			r.Post("/{id}/decision", h.decidePayment)
			r.Post("/{id}/proof", h.resubmitProof)
		})

		r.Route("/interviews", func(r chi.Router) {
			r.Get("/", h.listInterviews)
			r.Get("/{id}", h.getInterview)
			r.Put("/{id}/meeting", h.setMeetingLink)
			r.Post("/{id}/start", h.startInterview)
			r.Post("/{id}/complete", h.completeInterview)
			r.Post("/{id}/cancel", h.cancelInterview)
			r.Put("/{id}/recording", h.setRecording)
		})

		r.Put("/feedback/{interviewId}", h.submitFeedback)
		r.Get("/feedback/{interviewId}", h.getFeedback)
		r.Post("/ratings", h.submitRating)
		r.Get("/ratings/interviewer/{id}/average", h.interviewerAverage)

		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.updateProfile)
		r.Post("/profile/qr", h.uploadQRCode)

		r.Get("/admin/prices", h.listPrices)
		r.Put("/admin/prices", h.upsertPrice)

		// локальное хранилище отдаёт файлы само, S3 отдаёт по своим URL
		if files, ok := deps.Store.(fileSource); ok {
			r.Get("/files/*", h.serveFile(files))
		}
	})

	return r
}
