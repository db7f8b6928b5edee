package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hirelane/internal/database"
	"hirelane/internal/domain/payment"
)

type PaymentRepository interface {
	// Create fails with domain.ErrConflict on a duplicate session id or when
	// the job already holds an open payment.
	Create(ctx context.Context, p payment.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (payment.Payment, error)
	GetLatestByJobID(ctx context.Context, jobID uuid.UUID) (payment.Payment, error)
	CompareAndSet(ctx context.Context, sessionID string, from []payment.Status, to payment.Status, intentID *string, at time.Time) (payment.Payment, bool, error)
	ListByStatusBefore(ctx context.Context, status payment.Status, before time.Time, limit int) ([]payment.Payment, error)

	// RequestRefund moves a succeeded payment to refund_requested and records rr
	// in one transaction. When the payment is in any other status nothing is
	// written and the current row is returned with false.
	RequestRefund(ctx context.Context, sessionID string, rr payment.RefundRequest) (payment.Payment, bool, error)
	ApprovePendingRefunds(ctx context.Context, paymentID uuid.UUID, at time.Time) (int64, error)

	// RecordWebhookEvent inserts the event under its unique id and reports
	// whether an earlier delivery already finished processing it.
	RecordWebhookEvent(ctx context.Context, ev payment.WebhookEvent) (processed bool, err error)
	// MarkWebhookEventProcessed stamps processed_at only when processingErr is
	// empty so failed deliveries are retried.
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processingErr string, at time.Time) error
}

const paymentColumns = `id, job_id, payer_id, amount, currency, status, session_id, payment_intent_id, created_at, updated_at`

type PostgresPaymentRepository struct {
	db database.DB
}

func NewPostgresPaymentRepository(db database.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, p payment.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (id, job_id, payer_id, amount, currency, status, session_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		p.ID, p.JobID, p.PayerID, p.Amount, p.Currency, string(p.Status), p.SessionID, p.CreatedAt,
	)
	return translate(err, "payments: insert")
}

func (r *PostgresPaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (payment.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id = $1`, sessionID)
	p, err := scanPayment(row)
	if err != nil {
		return payment.Payment{}, translate(err, "payments: get by session")
	}
	return p, nil
}

func (r *PostgresPaymentRepository) GetLatestByJobID(ctx context.Context, jobID uuid.UUID) (payment.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE job_id = $1 ORDER BY created_at DESC LIMIT 1`,
		jobID,
	)
	p, err := scanPayment(row)
	if err != nil {
		return payment.Payment{}, translate(err, "payments: get latest by job")
	}
	return p, nil
}

func (r *PostgresPaymentRepository) CompareAndSet(ctx context.Context, sessionID string, from []payment.Status, to payment.Status, intentID *string, at time.Time) (payment.Payment, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE payments
		 SET status = $3, payment_intent_id = COALESCE($4, payment_intent_id), updated_at = $5
		 WHERE session_id = $1 AND status = ANY($2)
		 RETURNING `+paymentColumns,
		sessionID, payment.Statuses(from...), string(to), intentID, at,
	)
	p, err := scanPayment(row)
	if err == nil {
		return p, true, nil
	}
	if !isNoRows(err) {
		return payment.Payment{}, false, translate(err, "payments: compare and set")
	}

	cur, err := r.GetBySessionID(ctx, sessionID)
	if err != nil {
		return payment.Payment{}, false, err
	}
	return cur, false, nil
}

func (r *PostgresPaymentRepository) ListByStatusBefore(ctx context.Context, status payment.Status, before time.Time, limit int) ([]payment.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		string(status), before, limit,
	)
	if err != nil {
		return nil, translate(err, "payments: list stale")
	}
	defer rows.Close()

	out := make([]payment.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, translate(err, "payments: scan")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "payments: rows")
	}
	return out, nil
}

func (r *PostgresPaymentRepository) RequestRefund(ctx context.Context, sessionID string, rr payment.RefundRequest) (payment.Payment, bool, error) {
	var (
		p       payment.Payment
		changed bool
	)
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE payments SET status = $2, updated_at = $3
			 WHERE session_id = $1 AND status = $4
			 RETURNING `+paymentColumns,
			sessionID, string(payment.StatusRefundRequested), rr.CreatedAt, string(payment.StatusSucceeded),
		)
		var err error
		p, err = scanPayment(row)
		if err != nil {
			if !isNoRows(err) {
				return translate(err, "payments: request refund")
			}
			p, err = scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id = $1`, sessionID))
			return translate(err, "payments: get by session")
		}
		changed = true
		_, err = tx.Exec(ctx,
			`INSERT INTO refund_requests (id, payment_id, requested_by, reason, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rr.ID, p.ID, rr.RequestedBy, rr.Reason, string(rr.Status), rr.CreatedAt,
		)
		return translate(err, "refund_requests: insert")
	})
	if err != nil {
		return payment.Payment{}, false, err
	}
	return p, changed, nil
}

func (r *PostgresPaymentRepository) ApprovePendingRefunds(ctx context.Context, paymentID uuid.UUID, at time.Time) (int64, error) {
	n, err := r.db.Exec(ctx,
		`UPDATE refund_requests SET status = 'approved', decided_at = $2
		 WHERE payment_id = $1 AND status = 'pending'`,
		paymentID, at,
	)
	if err != nil {
		return 0, translate(err, "refund_requests: approve")
	}
	return n, nil
}

func (r *PostgresPaymentRepository) RecordWebhookEvent(ctx context.Context, ev payment.WebhookEvent) (bool, error) {
	inserted, err := r.db.Exec(ctx,
		`INSERT INTO webhook_events (event_id, event_type, session_id, payload, signature_valid, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, string(ev.Type), ev.SessionID, ev.Payload, ev.SignatureValid, ev.ReceivedAt,
	)
	if err != nil {
		return false, translate(err, "webhook_events: insert")
	}
	if inserted == 1 {
		return false, nil
	}

	var processed bool
	row := r.db.QueryRow(ctx, `SELECT processed_at IS NOT NULL FROM webhook_events WHERE event_id = $1`, ev.EventID)
	if err := row.Scan(&processed); err != nil {
		return false, translate(err, "webhook_events: lookup")
	}
	return processed, nil
}

func (r *PostgresPaymentRepository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processingErr string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE webhook_events
		 SET processed_at = CASE WHEN $3 = '' THEN $2::timestamptz ELSE NULL END, processing_error = $3
		 WHERE event_id = $1`,
		eventID, at, processingErr,
	)
	return translate(err, "webhook_events: mark processed")
}

func scanPayment(row database.Row) (payment.Payment, error) {
	var (
		p      payment.Payment
		status string
	)
	if err := row.Scan(&p.ID, &p.JobID, &p.PayerID, &p.Amount, &p.Currency, &status, &p.SessionID, &p.PaymentIntentID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return payment.Payment{}, err
	}
	p.Status = payment.Status(status)
	return p, nil
}
