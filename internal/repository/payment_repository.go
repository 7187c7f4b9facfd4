package repository

import (
	"context"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository handles payment data access.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, reference, user_id, amount, status, unlock_code, channel, paid_at, created_at`

// Create inserts a pending payment.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO payments (reference, user_id, amount, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.Reference, p.UserID, p.Amount, model.PaymentStatusPending,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetByReference retrieves a payment by its gateway reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	p := &model.Payment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference,
	).Scan(&p.ID, &p.Reference, &p.UserID, &p.Amount, &p.Status, &p.UnlockCode, &p.Channel, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkSuccess records a verified payment and its generated unlock code.
// The status guard makes verification idempotent: a payment already marked
// success keeps its original unlock code.
func (r *PaymentRepository) MarkSuccess(ctx context.Context, reference, unlockCode, channel string, paidAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments
		 SET status = $1, unlock_code = $2, channel = $3, paid_at = $4
		 WHERE reference = $5 AND status = $6`,
		model.PaymentStatusSuccess, unlockCode, channel, paidAt,
		reference, model.PaymentStatusPending)
	return err
}

// MarkFailed records a failed gateway verification.
func (r *PaymentRepository) MarkFailed(ctx context.Context, reference string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $1 WHERE reference = $2 AND status = $3`,
		model.PaymentStatusFailed, reference, model.PaymentStatusPending)
	return err
}

// GetSuccessByUnlockCode retrieves the user's success-status payment carrying
// the given unlock code, if one exists.
func (r *PaymentRepository) GetSuccessByUnlockCode(ctx context.Context, userID int, code string) (*model.Payment, error) {
	p := &model.Payment{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE user_id = $1 AND unlock_code = $2 AND status = $3`,
		userID, code, model.PaymentStatusSuccess,
	).Scan(&p.ID, &p.Reference, &p.UserID, &p.Amount, &p.Status, &p.UnlockCode, &p.Channel, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
