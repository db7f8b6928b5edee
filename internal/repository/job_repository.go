package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hirelane/internal/database"
	"hirelane/internal/domain/job"
)

type JobRepository interface {
	Create(ctx context.Context, j job.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (job.Job, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]job.Job, error)
	ListPublic(ctx context.Context, limit, offset int) ([]job.Job, error)
	// CompareAndSet applies upd only when the row is in one of from. The bool
	// reports whether the write happened; on false the current row is returned.
	CompareAndSet(ctx context.Context, id uuid.UUID, from []job.Status, upd job.Update) (job.Job, bool, error)
	SetInterview(ctx context.Context, id uuid.UUID, in job.Interview, at time.Time) (job.Job, error)
}

const jobColumns = `id, owner_id, title, location, description, status, is_paid, is_public,
	approved_by, approved_at, rejection_reason,
	interview_conversation_id, interview_public, interview_active,
	created_at, updated_at`

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, j job.Job) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO jobs (id, owner_id, title, location, description, status, is_paid, is_public, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, false, $7, $7)`,
		j.ID, j.OwnerID, j.Title, j.Location, j.Description, string(j.Status), j.CreatedAt,
	)
	return translate(err, "jobs: insert")
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		return job.Job{}, translate(err, "jobs: get")
	}
	return j, nil
}

func (r *PostgresJobRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]job.Job, error) {
	limit, offset = clampPage(limit, offset)
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
}

func (r *PostgresJobRepository) ListPublic(ctx context.Context, limit, offset int) ([]job.Job, error) {
	limit, offset = clampPage(limit, offset)
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE is_public = true AND status = 'active' ORDER BY approved_at DESC NULLS LAST LIMIT $1 OFFSET $2`,
		limit, offset,
	)
}

func (r *PostgresJobRepository) CompareAndSet(ctx context.Context, id uuid.UUID, from []job.Status, upd job.Update) (job.Job, bool, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE jobs
		 SET status = $3,
		     is_public = $4,
		     is_paid = COALESCE($5, is_paid),
		     approved_by = COALESCE($6, approved_by),
		     approved_at = COALESCE($7, approved_at),
		     rejection_reason = COALESCE($8, rejection_reason),
		     updated_at = $9
		 WHERE id = $1 AND status = ANY($2)
		 RETURNING `+jobColumns,
		id, job.Statuses(from...), string(upd.To), upd.IsPublic(),
		upd.IsPaid, upd.ApprovedBy, upd.ApprovedAt, upd.RejectionReason, upd.At,
	)
	j, err := scanJob(row)
	if err == nil {
		return j, true, nil
	}
	if !isNoRows(err) {
		return job.Job{}, false, translate(err, "jobs: compare and set")
	}

	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return job.Job{}, false, err
	}
	return cur, false, nil
}

func (r *PostgresJobRepository) SetInterview(ctx context.Context, id uuid.UUID, in job.Interview, at time.Time) (job.Job, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE jobs
		 SET interview_conversation_id = $2, interview_public = $3, interview_active = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+jobColumns,
		id, in.ConversationID, in.Public, in.Active, at,
	)
	j, err := scanJob(row)
	if err != nil {
		return job.Job{}, translate(err, "jobs: set interview")
	}
	return j, nil
}

func (r *PostgresJobRepository) list(ctx context.Context, query string, args ...any) ([]job.Job, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "jobs: list")
	}
	defer rows.Close()

	out := make([]job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, translate(err, "jobs: scan")
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "jobs: rows")
	}
	return out, nil
}

func scanJob(row database.Row) (job.Job, error) {
	var (
		j      job.Job
		status string
	)
	err := row.Scan(
		&j.ID, &j.OwnerID, &j.Title, &j.Location, &j.Description, &status, &j.IsPaid, &j.IsPublic,
		&j.ApprovedBy, &j.ApprovedAt, &j.RejectionReason,
		&j.Interview.ConversationID, &j.Interview.Public, &j.Interview.Active,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return job.Job{}, err
	}
	j.Status = job.Status(status)
	return j, nil
}
