package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, kind, subject_id, payer_id, payee_id, amount, currency, upi_id, qr_code_url, status,
	transaction_ref, proof_asset_ref, verifier_id, created_at, submitted_at, decided_at`

type PaymentRepository struct {
	*base.Repository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{Repository: base.NewRepository(pool)}
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.Kind,
		&p.SubjectID,
		&p.PayerID,
		&p.PayeeID,
		&p.Amount,
		&p.Currency,
		&p.UpiID,
		&p.QrCodeURL,
		&p.Status,
		&p.TransactionRef,
		&p.ProofAssetRef,
		&p.VerifierID,
		&p.CreatedAt,
		&p.SubmittedAt,
		&p.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) queryOne(ctx context.Context, op, query string, args ...any) (*model.Payment, error) {
	p, err := scanPayment(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *PaymentRepository) queryMany(ctx context.Context, op, query string, args ...any) ([]*model.Payment, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// Create создаёт платёж; открытый дубликат отсекается уникальным индексом
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (kind, subject_id, payer_id, payee_id, amount, currency, upi_id, qr_code_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		p.Kind,
		p.SubjectID,
		p.PayerID,
		p.PayeeID,
		p.Amount,
		p.Currency,
		p.UpiID,
		p.QrCodeURL,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create payment: %w", ErrConflict)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByID получает платёж по ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	return r.queryOne(ctx, "get payment by id", `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// FindOpen открытый платёж плательщика по предмету оплаты
func (r *PaymentRepository) FindOpen(ctx context.Context, kind model.PaymentKind, subjectID, payerID int64) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE kind = $1 AND subject_id = $2 AND payer_id = $3
		  AND status IN ('pending', 'submitted', 'rejected')
		LIMIT 1
	`
	return r.queryOne(ctx, "find open payment", query, kind, subjectID, payerID)
}

// LatestForSubject последний платёж по предмету оплаты
func (r *PaymentRepository) LatestForSubject(ctx context.Context, kind model.PaymentKind, subjectID int64) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE kind = $1 AND subject_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.queryOne(ctx, "get latest payment for subject", query, kind, subjectID)
}

// ListBySubject все платежи по предмету оплаты
func (r *PaymentRepository) ListBySubject(ctx context.Context, kind model.PaymentKind, subjectID int64) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE kind = $1 AND subject_id = $2
		ORDER BY created_at, id
	`
	return r.queryMany(ctx, "list payments for subject", query, kind, subjectID)
}

func paymentsByStatusQuery(status model.PaymentStatus, payeeID *int64) squirrel.SelectBuilder {
	qb := base.Psql.Select(paymentColumns).
		From("payments").
		Where(squirrel.Eq{"status": status}).
		OrderBy("created_at", "id")

	if payeeID != nil {
		qb = qb.Where(squirrel.Eq{"payee_id": *payeeID})
	}

	return qb
}

// ListByStatus платежи в статусе; payeeID == nil значит по всем получателям
func (r *PaymentRepository) ListByStatus(ctx context.Context, status model.PaymentStatus, payeeID *int64) ([]*model.Payment, error) {
	query, args, err := paymentsByStatusQuery(status, payeeID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payments by status query: %w", err)
	}

	return r.queryMany(ctx, "list payments by status", query, args...)
}

// SubmitProof pending|rejected -> submitted
func (r *PaymentRepository) SubmitProof(ctx context.Context, id int64, transactionRef, proofAssetRef string, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'submitted', transaction_ref = $1, proof_asset_ref = $2, submitted_at = $3,
		    verifier_id = NULL, decided_at = NULL
		WHERE id = $4 AND status IN ('pending', 'rejected')
	`

	affected, err := r.ExecAffected(ctx, query, transactionRef, proofAssetRef, at, id)
	if err != nil {
		return false, fmt.Errorf("submit payment proof: %w", err)
	}

	return affected == 1, nil
}

// RevertSubmission submitted -> pending, чек стирается
func (r *PaymentRepository) RevertSubmission(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'pending', transaction_ref = '', proof_asset_ref = '', submitted_at = NULL
		WHERE id = $1 AND status = 'submitted'
	`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("revert payment submission: %w", err)
	}

	return affected == 1, nil
}

// Decide submitted -> verified|rejected
func (r *PaymentRepository) Decide(ctx context.Context, id, verifierID int64, status model.PaymentStatus, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, verifier_id = $2, decided_at = $3
		WHERE id = $4 AND status = 'submitted'
	`

	affected, err := r.ExecAffected(ctx, query, status, verifierID, at, id)
	if err != nil {
		return false, fmt.Errorf("decide payment: %w", err)
	}

	return affected == 1, nil
}

// Transition меняет статус только из ожидаемого
func (r *PaymentRepository) Transition(ctx context.Context, id int64, from, to model.PaymentStatus) (bool, error) {
	affected, err := r.ExecAffected(ctx, `UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}

	return affected == 1, nil
}

// ExpirePending переводит в expired pending платежи, созданные раньше cutoff
func (r *PaymentRepository) ExpirePending(ctx context.Context, kind model.PaymentKind, cutoff time.Time) ([]*model.Payment, error) {
	query := `
		UPDATE payments
		SET status = 'expired'
		WHERE kind = $1 AND status = 'pending' AND created_at < $2
		RETURNING ` + paymentColumns

	return r.queryMany(ctx, "expire pending payments", query, kind, cutoff)
}
