package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
)

type ApplicationRepository struct {
	s *Store
}

func (r *ApplicationRepository) Create(_ context.Context, app application.Application, first application.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[app.JobID]; !ok {
		return errors.Wrap(domain.ErrNotFound, "applications: insert: job")
	}
	for _, cur := range r.s.applications {
		if cur.ID == app.ID {
			return errors.Wrap(domain.ErrConflict, "applications: insert")
		}
		if cur.JobID == app.JobID && cur.TalentID == app.TalentID && !cur.Deleted() {
			return errors.Wrap(domain.ErrConflict, "applications: insert: already applied")
		}
	}
	app.LastActivityAt = app.CreatedAt
	r.s.applications[app.ID] = app
	r.s.mark(app.ID)
	r.s.history = append(r.s.history, first)
	return nil
}

func (r *ApplicationRepository) GetByID(_ context.Context, id uuid.UUID) (application.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.applications[id]
	if !ok || app.Deleted() {
		return application.Application{}, errors.Wrap(domain.ErrNotFound, "applications: get")
	}
	return app, nil
}

func (r *ApplicationRepository) ListByJob(_ context.Context, jobID uuid.UUID, limit, offset int) ([]application.Application, error) {
	return r.list(func(a application.Application) bool { return a.JobID == jobID }, limit, offset), nil
}

func (r *ApplicationRepository) ListByTalent(_ context.Context, talentID uuid.UUID, limit, offset int) ([]application.Application, error) {
	return r.list(func(a application.Application) bool { return a.TalentID == talentID }, limit, offset), nil
}

func (r *ApplicationRepository) UpdateStatus(_ context.Context, id uuid.UUID, expectedVersion int, entry application.HistoryEntry) (application.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.applications[id]
	if !ok || app.Deleted() {
		return application.Application{}, errors.Wrap(domain.ErrNotFound, "applications: update status")
	}
	if app.Version != expectedVersion {
		return application.Application{}, errors.Wrapf(domain.ErrOptimisticLock, "applications: version %d", expectedVersion)
	}
	app.Status = entry.NewStatus
	app.Version++
	app.LastActivityAt = entry.CreatedAt
	r.s.applications[id] = app
	r.s.history = append(r.s.history, entry)
	return app, nil
}

func (r *ApplicationRepository) SoftDelete(_ context.Context, id uuid.UUID, actorID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.applications[id]
	if !ok || app.Deleted() {
		return errors.Wrap(domain.ErrNotFound, "applications: soft delete")
	}
	deletedAt, deletedBy := at, actorID
	app.DeletedAt = &deletedAt
	app.DeletedBy = &deletedBy
	r.s.applications[id] = app
	return nil
}

func (r *ApplicationRepository) ListHistory(_ context.Context, id uuid.UUID) ([]application.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]application.HistoryEntry, 0)
	for _, e := range r.s.history {
		if e.ApplicationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *ApplicationRepository) list(keep func(application.Application) bool, limit, offset int) []application.Application {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]application.Application, 0)
	for _, a := range r.s.applications {
		if !a.Deleted() && keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return r.s.inserted[out[i].ID] > r.s.inserted[out[j].ID]
	})
	return page(out, limit, offset)
}
