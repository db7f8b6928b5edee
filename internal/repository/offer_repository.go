package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hirelane/internal/database"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/offer"
)

type OfferRepository interface {
	// Create fails with domain.ErrConflict while another draft or sent offer
	// exists for the application.
	Create(ctx context.Context, o offer.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (offer.Offer, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]offer.Offer, error)
	// UpdateTerms rewrites the editable fields while the offer is a draft.
	UpdateTerms(ctx context.Context, id uuid.UUID, t offer.Terms, at time.Time) (offer.Offer, bool, error)
	CompareAndSet(ctx context.Context, id uuid.UUID, from []offer.Status, to offer.Status, respondedAt *time.Time, at time.Time) (offer.Offer, bool, error)
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (offer.Offer, error)
	// ListWithApplicationIn finds offers in status whose live application
	// still sits in one of appStatuses.
	ListWithApplicationIn(ctx context.Context, status offer.Status, appStatuses []application.Status, limit int) ([]offer.Offer, error)
}

const offerColumns = `id, application_id, created_by, position_title, salary_amount, salary_currency, salary_type,
	contract_terms, start_date, status, is_salary_negotiable, is_terms_negotiable, response_deadline,
	viewed_at, responded_at, created_at, updated_at`

type PostgresOfferRepository struct {
	db database.DB
}

func NewPostgresOfferRepository(db database.DB) *PostgresOfferRepository {
	return &PostgresOfferRepository{db: db}
}

func (r *PostgresOfferRepository) Create(ctx context.Context, o offer.Offer) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO offers (id, application_id, created_by, position_title, salary_amount, salary_currency, salary_type,
		                     contract_terms, start_date, status, is_salary_negotiable, is_terms_negotiable, response_deadline,
		                     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		o.ID, o.ApplicationID, o.CreatedBy, o.PositionTitle, o.SalaryAmount, o.SalaryCurrency, string(o.SalaryType),
		o.ContractTerms, o.StartDate, string(o.Status), o.SalaryNegotiable, o.TermsNegotiable, o.ResponseDeadline,
		o.CreatedAt,
	)
	return translate(err, "offers: insert")
}

func (r *PostgresOfferRepository) GetByID(ctx context.Context, id uuid.UUID) (offer.Offer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if err != nil {
		return offer.Offer{}, translate(err, "offers: get")
	}
	return o, nil
}

func (r *PostgresOfferRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]offer.Offer, error) {
	return r.list(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE application_id = $1 ORDER BY created_at DESC`,
		applicationID,
	)
}

func (r *PostgresOfferRepository) UpdateTerms(ctx context.Context, id uuid.UUID, t offer.Terms, at time.Time) (offer.Offer, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE offers
		 SET position_title = $2, salary_amount = $3, salary_currency = $4, salary_type = $5, contract_terms = $6,
		     start_date = $7, is_salary_negotiable = $8, is_terms_negotiable = $9, response_deadline = $10,
		     updated_at = $11
		 WHERE id = $1 AND status = 'draft'
		 RETURNING `+offerColumns,
		id, t.PositionTitle, t.SalaryAmount, t.SalaryCurrency, string(t.SalaryType), t.ContractTerms,
		t.StartDate, t.SalaryNegotiable, t.TermsNegotiable, t.ResponseDeadline, at,
	)
	return r.casResult(ctx, id, row, "offers: update terms")
}

func (r *PostgresOfferRepository) CompareAndSet(ctx context.Context, id uuid.UUID, from []offer.Status, to offer.Status, respondedAt *time.Time, at time.Time) (offer.Offer, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE offers
		 SET status = $3, responded_at = COALESCE($4, responded_at), updated_at = $5
		 WHERE id = $1 AND status = ANY($2)
		 RETURNING `+offerColumns,
		id, offer.Statuses(from...), string(to), respondedAt, at,
	)
	return r.casResult(ctx, id, row, "offers: compare and set")
}

func (r *PostgresOfferRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (offer.Offer, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE offers SET viewed_at = COALESCE(viewed_at, $2) WHERE id = $1 RETURNING `+offerColumns,
		id, at,
	)
	o, err := scanOffer(row)
	if err != nil {
		return offer.Offer{}, translate(err, "offers: mark viewed")
	}
	return o, nil
}

func (r *PostgresOfferRepository) ListWithApplicationIn(ctx context.Context, status offer.Status, appStatuses []application.Status, limit int) ([]offer.Offer, error) {
	if limit <= 0 {
		limit = 100
	}
	cols := `o.id, o.application_id, o.created_by, o.position_title, o.salary_amount, o.salary_currency, o.salary_type,
		o.contract_terms, o.start_date, o.status, o.is_salary_negotiable, o.is_terms_negotiable, o.response_deadline,
		o.viewed_at, o.responded_at, o.created_at, o.updated_at`
	return r.list(ctx,
		`SELECT `+cols+`
		 FROM offers o
		 JOIN applications a ON a.id = o.application_id
		 WHERE o.status = $1
		   AND a.deleted_at IS NULL
		   AND a.status = ANY($2)
		 ORDER BY o.updated_at ASC
		 LIMIT $3`,
		string(status), application.Statuses(appStatuses...), limit,
	)
}

func (r *PostgresOfferRepository) casResult(ctx context.Context, id uuid.UUID, row database.Row, op string) (offer.Offer, bool, error) {
	o, err := scanOffer(row)
	if err == nil {
		return o, true, nil
	}
	if !isNoRows(err) {
		return offer.Offer{}, false, translate(err, op)
	}
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return offer.Offer{}, false, err
	}
	return cur, false, nil
}

func (r *PostgresOfferRepository) list(ctx context.Context, query string, args ...any) ([]offer.Offer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "offers: list")
	}
	defer rows.Close()

	out := make([]offer.Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, translate(err, "offers: scan")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "offers: rows")
	}
	return out, nil
}

func scanOffer(row database.Row) (offer.Offer, error) {
	var (
		o          offer.Offer
		salaryType string
		status     string
	)
	err := row.Scan(
		&o.ID, &o.ApplicationID, &o.CreatedBy, &o.PositionTitle, &o.SalaryAmount, &o.SalaryCurrency, &salaryType,
		&o.ContractTerms, &o.StartDate, &status, &o.SalaryNegotiable, &o.TermsNegotiable, &o.ResponseDeadline,
		&o.ViewedAt, &o.RespondedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return offer.Offer{}, err
	}
	o.SalaryType = offer.SalaryType(salaryType)
	o.Status = offer.Status(status)
	return o, nil
}
