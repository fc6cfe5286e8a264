package model

import "time"

type PaymentKind string

const (
	PaymentKindPreBooking    PaymentKind = "pre_booking"    // оплата до подтверждения брони, subject = слот
	PaymentKindPostInterview PaymentKind = "post_interview" // оплата после интервью, subject = интервью
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // Ожидает подтверждения оплаты от плательщика
	PaymentStatusSubmitted PaymentStatus = "submitted" // Чек отправлен, ждёт решения
	PaymentStatusVerified  PaymentStatus = "verified"  // Подтверждено получателем
	PaymentStatusRejected  PaymentStatus = "rejected"  // Отклонено, можно отправить чек повторно
	PaymentStatusRefunded  PaymentStatus = "refunded"  // Возвращено после отмены интервью
	PaymentStatusExpired   PaymentStatus = "expired"   // Истёк срок ожидания оплаты
)

// OpenPaymentStatuses статусы, в которых платёж считается открытым
var OpenPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSubmitted,
	PaymentStatusRejected,
}

// IsOpen платёж ещё не в терминальном состоянии
func (s PaymentStatus) IsOpen() bool {
	for _, open := range OpenPaymentStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// CanSubmitProof чек можно отправить только из pending или rejected
func (s PaymentStatus) CanSubmitProof() bool {
	return s == PaymentStatusPending || s == PaymentStatusRejected
}

type Payment struct {
	ID             int64         `json:"id"`
	Kind           PaymentKind   `json:"kind"`
	SubjectID      int64         `json:"subject_id"`
	PayerID        int64         `json:"payer_id"`
	PayeeID        int64         `json:"payee_id"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	UpiID          string        `json:"upi_id"`
	QrCodeURL      string        `json:"qr_code_url"`
	Status         PaymentStatus `json:"status"`
	TransactionRef string        `json:"transaction_ref"`
	ProofAssetRef  string        `json:"proof_asset_ref"`
	VerifierID     *int64        `json:"verifier_id"`
	CreatedAt      time.Time     `json:"created_at"`
	SubmittedAt    *time.Time    `json:"submitted_at"`
	DecidedAt      *time.Time    `json:"decided_at"`
}

// PaymentDetails то, что видит кандидат после резервирования слота
type PaymentDetails struct {
	PaymentID int64  `json:"paymentId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	UpiID     string `json:"upiId"`
	QrCodeURL string `json:"qrCodeUrl"`
}
