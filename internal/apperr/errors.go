// Package apperr описывает бизнес-ошибки ядра бронирования.
//
// Каждая ошибка относится к одному из классов (Kind), по которому транспорт
// выбирает код ответа. Сервисы оборачивают их через fmt.Errorf("%w: ...").
package apperr

import (
	"errors"
	"strconv"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindAuthorization Kind = "authorization"
	KindPolicy        Kind = "policy"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// Error бизнес-ошибка с классом и стабильным кодом
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation
var (
	ErrValidation      = newError(KindValidation, "VALIDATION", "validation failed")
	ErrInvalidLeadTime = newError(KindValidation, "INVALID_LEAD_TIME", "lead time floor not reachable within recurrence cap")
)

// StateConflict
var (
	ErrSlotAlreadyBooked    = newError(KindStateConflict, "SLOT_ALREADY_BOOKED", "slot is already booked")
	ErrAlreadyBooked        = newError(KindStateConflict, "ALREADY_BOOKED", "slot is already marked as booked")
	ErrSlotBooked           = newError(KindStateConflict, "SLOT_BOOKED", "booked slot cannot be deleted")
	ErrOverlap              = newError(KindStateConflict, "OVERLAP", "slot overlaps another slot of the owner")
	ErrInvalidState         = newError(KindStateConflict, "INVALID_STATE", "operation is not allowed in the current state")
	ErrDuplicateOpenPayment = newError(KindStateConflict, "DUPLICATE_OPEN_PAYMENT", "an open payment already exists for this subject")
	ErrDuplicateRating      = newError(KindStateConflict, "DUPLICATE_RATING", "interview is already rated")
)

// Authorization
var (
	ErrForbidden = newError(KindAuthorization, "FORBIDDEN", "identity does not own the resource")
)

// Policy
var (
	ErrLeadTimeViolation       = newError(KindPolicy, "LEAD_TIME_VIOLATION", "slot must start at least 24h from now")
	ErrOutstandingPaymentBlock = newError(KindPolicy, "OUTSTANDING_PAYMENT_BLOCK", "unresolved post-interview payment blocks new bookings")
	ErrMeetingLinkRequired     = newError(KindPolicy, "MEETING_LINK_REQUIRED", "meeting link must be set before the interview starts")
	ErrSlotStarted             = newError(KindPolicy, "SLOT_STARTED", "slot has already started")
)

// NotFound
var (
	ErrSlotNotFound      = newError(KindNotFound, "SLOT_NOT_FOUND", "slot not found")
	ErrPaymentNotFound   = newError(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrInterviewNotFound = newError(KindNotFound, "INTERVIEW_NOT_FOUND", "interview not found")
	ErrFeedbackNotFound  = newError(KindNotFound, "FEEDBACK_NOT_FOUND", "feedback not found")
	ErrPriceNotFound     = newError(KindNotFound, "PRICE_NOT_FOUND", "price is not configured for interview type")
)

// As достаёт бизнес-ошибку из цепочки обёрток
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf возвращает класс ошибки, KindInternal для всего остального
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// BatchError ошибка пакетного создания с индексом проблемного элемента
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return "batch item " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
