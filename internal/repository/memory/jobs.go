package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/domain"
	"hirelane/internal/domain/job"
)

type JobRepository struct {
	s *Store
}

func (r *JobRepository) Create(_ context.Context, j job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[j.ID]; ok {
		return errors.Wrap(domain.ErrConflict, "jobs: insert")
	}
	j.IsPaid = false
	j.IsPublic = false
	j.UpdatedAt = j.CreatedAt
	r.s.jobs[j.ID] = j
	r.s.mark(j.ID)
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.Job{}, errors.Wrap(domain.ErrNotFound, "jobs: get")
	}
	return j, nil
}

func (r *JobRepository) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return r.s.inserted[out[a].ID] > r.s.inserted[out[b].ID] })
	return page(out, limit, offset), nil
}

func (r *JobRepository) ListPublic(_ context.Context, limit, offset int) ([]job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		if j.IsPublic && j.Status == job.StatusActive {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return r.s.inserted[out[a].ID] > r.s.inserted[out[b].ID] })
	return page(out, limit, offset), nil
}

func (r *JobRepository) CompareAndSet(_ context.Context, id uuid.UUID, from []job.Status, upd job.Update) (job.Job, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.Job{}, false, errors.Wrap(domain.ErrNotFound, "jobs: compare and set")
	}
	if !contains(from, j.Status) {
		return j, false, nil
	}
	j = upd.Apply(j)
	r.s.jobs[id] = j
	return j, true, nil
}

func (r *JobRepository) SetInterview(_ context.Context, id uuid.UUID, in job.Interview, at time.Time) (job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.Job{}, errors.Wrap(domain.ErrNotFound, "jobs: set interview")
	}
	j.Interview = in
	j.UpdatedAt = at
	r.s.jobs[id] = j
	return j, nil
}
