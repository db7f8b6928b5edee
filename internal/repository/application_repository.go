package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/database"
	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
)

type ApplicationRepository interface {
	// Create inserts the application together with its first history entry.
	Create(ctx context.Context, app application.Application, first application.HistoryEntry) error
	// GetByID never returns soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (application.Application, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]application.Application, error)
	ListByTalent(ctx context.Context, talentID uuid.UUID, limit, offset int) ([]application.Application, error)
	// UpdateStatus sets the status, bumps the version, touches
	// last_activity_at and appends entry in one transaction. A version
	// mismatch yields domain.ErrOptimisticLock and writes nothing.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, entry application.HistoryEntry) (application.Application, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error
	ListHistory(ctx context.Context, id uuid.UUID) ([]application.HistoryEntry, error)
}

const applicationColumns = `id, job_id, talent_id, status, version, cover_letter, resume_url,
	deleted_at, deleted_by, last_activity_at, created_at`

type PostgresApplicationRepository struct {
	db database.DB
}

func NewPostgresApplicationRepository(db database.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) Create(ctx context.Context, app application.Application, first application.HistoryEntry) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO applications (id, job_id, talent_id, status, version, cover_letter, resume_url, last_activity_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			app.ID, app.JobID, app.TalentID, string(app.Status), app.Version, app.CoverLetter, app.ResumeURL, app.CreatedAt,
		)
		if err != nil {
			return translate(err, "applications: insert")
		}
		return insertHistory(ctx, tx, first)
	})
}

func (r *PostgresApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (application.Application, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	app, err := scanApplication(row)
	if err != nil {
		return application.Application{}, translate(err, "applications: get")
	}
	return app, nil
}

func (r *PostgresApplicationRepository) ListByJob(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]application.Application, error) {
	limit, offset = clampPage(limit, offset)
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE job_id = $1 AND deleted_at IS NULL
		 ORDER BY last_activity_at DESC
		 LIMIT $2 OFFSET $3`,
		jobID, limit, offset,
	)
}

func (r *PostgresApplicationRepository) ListByTalent(ctx context.Context, talentID uuid.UUID, limit, offset int) ([]application.Application, error) {
	limit, offset = clampPage(limit, offset)
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE talent_id = $1 AND deleted_at IS NULL
		 ORDER BY last_activity_at DESC
		 LIMIT $2 OFFSET $3`,
		talentID, limit, offset,
	)
}

func (r *PostgresApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, entry application.HistoryEntry) (application.Application, error) {
	var app application.Application
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE applications
			 SET status = $3, version = version + 1, last_activity_at = $4
			 WHERE id = $1 AND version = $2 AND deleted_at IS NULL
			 RETURNING `+applicationColumns,
			id, expectedVersion, string(entry.NewStatus), entry.CreatedAt,
		)
		var err error
		app, err = scanApplication(row)
		if err != nil {
			if !isNoRows(err) {
				return translate(err, "applications: update status")
			}
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists); err != nil {
				return translate(err, "applications: exists")
			}
			if !exists {
				return errors.Wrap(domain.ErrNotFound, "applications: update status")
			}
			return errors.Wrapf(domain.ErrOptimisticLock, "applications: version %d", expectedVersion)
		}
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (r *PostgresApplicationRepository) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error {
	n, err := r.db.Exec(ctx,
		`UPDATE applications SET deleted_at = $2, deleted_by = $3
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, at, actorID,
	)
	if err != nil {
		return translate(err, "applications: soft delete")
	}
	if n == 0 {
		return errors.Wrap(domain.ErrNotFound, "applications: soft delete")
	}
	return nil
}

func (r *PostgresApplicationRepository) ListHistory(ctx context.Context, id uuid.UUID) ([]application.HistoryEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, application_id, old_status, new_status, actor_id, COALESCE(notes, ''), created_at
		 FROM application_history
		 WHERE application_id = $1
		 ORDER BY seq ASC`,
		id,
	)
	if err != nil {
		return nil, translate(err, "application_history: list")
	}
	defer rows.Close()

	out := make([]application.HistoryEntry, 0)
	for rows.Next() {
		var (
			e         application.HistoryEntry
			oldStatus *string
			newStatus string
		)
		if err := rows.Scan(&e.ID, &e.ApplicationID, &oldStatus, &newStatus, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, translate(err, "application_history: scan")
		}
		if oldStatus != nil {
			s := application.Status(*oldStatus)
			e.OldStatus = &s
		}
		e.NewStatus = application.Status(newStatus)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "application_history: rows")
	}
	return out, nil
}

func (r *PostgresApplicationRepository) list(ctx context.Context, query string, args ...any) ([]application.Application, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "applications: list")
	}
	defer rows.Close()

	out := make([]application.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, translate(err, "applications: scan")
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "applications: rows")
	}
	return out, nil
}

func insertHistory(ctx context.Context, tx database.Tx, e application.HistoryEntry) error {
	var oldStatus *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		oldStatus = &s
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO application_history (id, application_id, old_status, new_status, actor_id, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		e.ID, e.ApplicationID, oldStatus, string(e.NewStatus), e.ActorID, e.Notes, e.CreatedAt,
	)
	return translate(err, "application_history: insert")
}

func scanApplication(row database.Row) (application.Application, error) {
	var (
		app    application.Application
		status string
	)
	err := row.Scan(
		&app.ID, &app.JobID, &app.TalentID, &status, &app.Version, &app.CoverLetter, &app.ResumeURL,
		&app.DeletedAt, &app.DeletedBy, &app.LastActivityAt, &app.CreatedAt,
	)
	if err != nil {
		return application.Application{}, err
	}
	app.Status = application.Status(status)
	return app, nil
}
