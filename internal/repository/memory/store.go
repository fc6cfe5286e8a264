// Package memory хранит сущности в памяти процесса. Используется как драйвер
// STORAGE_DRIVER=memory для локального запуска и в тестах сервисов.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// Store общее хранилище всех репозиториев
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64
	now  func() time.Time

	slots      map[int64]*model.Slot
	payments   map[int64]*model.Payment
	interviews map[int64]*model.Interview
	feedback   map[int64]*model.Feedback
	ratings    map[int64]*model.Rating
	profiles   map[int64]*model.Profile
	prices     map[model.InterviewType]*model.PriceRule
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		now:        time.Now,
		slots:      make(map[int64]*model.Slot),
		payments:   make(map[int64]*model.Payment),
		interviews: make(map[int64]*model.Interview),
		feedback:   make(map[int64]*model.Feedback),
		ratings:    make(map[int64]*model.Rating),
		profiles:   make(map[int64]*model.Profile),
		prices:     make(map[model.InterviewType]*model.PriceRule),
	}
}

// SetClock подменяет часы для created_at
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Slots() *SlotRepository           { return &SlotRepository{s: s} }
func (s *Store) Payments() *PaymentRepository     { return &PaymentRepository{s: s} }
func (s *Store) Interviews() *InterviewRepository { return &InterviewRepository{s: s} }
func (s *Store) Feedback() *FeedbackRepository    { return &FeedbackRepository{s: s} }
func (s *Store) Ratings() *RatingRepository       { return &RatingRepository{s: s} }
func (s *Store) Profiles() *ProfileRepository     { return &ProfileRepository{s: s} }
func (s *Store) Prices() *PriceRepository         { return &PriceRepository{s: s} }
func (s *Store) TxManager() *TxManager            { return &TxManager{s: s} }

type journalKey struct{}

// journal откаты изменений, сделанных внутри транзакции
type journal struct {
	undo []func()
}

// record запоминает откат; вызывается под s.mu
func (s *Store) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// TxManager сериализует транзакции и откатывает изменения при ошибке
type TxManager struct {
	s *Store
}

// Do выполняет fn; при ошибке все записи fn откатываются
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err != nil {
		m.s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		m.s.mu.Unlock()
	}

	return err
}
