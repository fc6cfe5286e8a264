package app

import (
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repositories набор хранилищ для выбранного драйвера
type Repositories struct {
	Slots      service.SlotRepository
	Payments   service.PaymentRepository
	Interviews service.InterviewRepository
	Feedback   service.FeedbackRepository
	Ratings    service.RatingRepository
	Profiles   service.ProfileRepository
	Prices     service.PriceRepository
	TxManager  service.TransactionManager
}

func NewPostgresRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Slots:      repository.NewSlotRepository(pool),
		Payments:   repository.NewPaymentRepository(pool),
		Interviews: repository.NewInterviewRepository(pool),
		Feedback:   repository.NewFeedbackRepository(pool),
		Ratings:    repository.NewRatingRepository(pool),
		Profiles:   repository.NewProfileRepository(pool),
		Prices:     repository.NewPriceRepository(pool),
		TxManager:  base.NewTxManager(pool),
	}
}

// NewMemoryRepositories всё в памяти процесса, данные теряются при рестарте
func NewMemoryRepositories(store *memory.Store) *Repositories {
	return &Repositories{
		Slots:      store.Slots(),
		Payments:   store.Payments(),
		Interviews: store.Interviews(),
		Feedback:   store.Feedback(),
		Ratings:    store.Ratings(),
		Profiles:   store.Profiles(),
		Prices:     store.Prices(),
		TxManager:  store.TxManager(),
	}
}

// Services собранные сервисы ядра
type Services struct {
	Profiles   *service.ProfileService
	Pricing    *service.PricingService
	Slots      *service.SlotService
	Payments   *service.PaymentService
	Bookings   *service.BookingService
	Interviews *service.InterviewService
	Feedback   *service.FeedbackService
}

// NewServices связывает сервисы между собой
func NewServices(repos *Repositories, cache service.ProfileCache, publisher service.EventPublisher, clock service.TimeProvider, defaultCurrency string, logger *zap.Logger) *Services {
	s := &Services{}
	s.Profiles = service.NewProfileService(repos.Profiles, cache, clock, logger.Named("profiles"))
	s.Pricing = service.NewPricingService(repos.Prices, defaultCurrency, clock, logger.Named("pricing"))
	s.Slots = service.NewSlotService(repos.Slots, s.Pricing, repos.TxManager, publisher, clock, logger.Named("slots"))
	s.Payments = service.NewPaymentService(repos.Payments, s.Profiles, publisher, clock, logger.Named("payments"))
	s.Bookings = service.NewBookingService(repos.Slots, s.Slots, repos.Interviews, s.Payments, repos.Payments, s.Profiles, repos.TxManager, publisher, clock, logger.Named("bookings"))
	s.Interviews = service.NewInterviewService(repos.Interviews, s.Slots, s.Payments, s.Pricing, repos.TxManager, publisher, clock, logger.Named("interviews"))
	s.Feedback = service.NewFeedbackService(repos.Feedback, repos.Ratings, repos.Interviews, publisher, clock, logger.Named("feedback"))
	return s
}
