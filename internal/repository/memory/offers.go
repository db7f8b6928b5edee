package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/offer"
)

type OfferRepository struct {
	s *Store
}

func (r *OfferRepository) Create(_ context.Context, o offer.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[o.ApplicationID]; !ok {
		return errors.Wrap(domain.ErrNotFound, "offers: insert: application")
	}
	for _, cur := range r.s.offers {
		if cur.ID == o.ID {
			return errors.Wrap(domain.ErrConflict, "offers: insert")
		}
		if cur.ApplicationID == o.ApplicationID && !cur.Status.Terminal() && !o.Status.Terminal() {
			return errors.Wrap(domain.ErrConflict, "offers: insert: open offer")
		}
	}
	o.UpdatedAt = o.CreatedAt
	r.s.offers[o.ID] = o
	r.s.mark(o.ID)
	return nil
}

func (r *OfferRepository) GetByID(_ context.Context, id uuid.UUID) (offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return offer.Offer{}, errors.Wrap(domain.ErrNotFound, "offers: get")
	}
	return o, nil
}

func (r *OfferRepository) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]offer.Offer, 0)
	for _, o := range r.s.offers {
		if o.ApplicationID == applicationID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.inserted[out[i].ID] > r.s.inserted[out[j].ID] })
	return out, nil
}

func (r *OfferRepository) UpdateTerms(_ context.Context, id uuid.UUID, t offer.Terms, at time.Time) (offer.Offer, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return offer.Offer{}, false, errors.Wrap(domain.ErrNotFound, "offers: update terms")
	}
	if o.Status != offer.StatusDraft {
		return o, false, nil
	}
	o = o.WithTerms(t)
	o.UpdatedAt = at
	r.s.offers[id] = o
	return o, true, nil
}

func (r *OfferRepository) CompareAndSet(_ context.Context, id uuid.UUID, from []offer.Status, to offer.Status, respondedAt *time.Time, at time.Time) (offer.Offer, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return offer.Offer{}, false, errors.Wrap(domain.ErrNotFound, "offers: compare and set")
	}
	if !contains(from, o.Status) {
		return o, false, nil
	}
	o.Status = to
	if respondedAt != nil {
		o.RespondedAt = respondedAt
	}
	o.UpdatedAt = at
	r.s.offers[id] = o
	return o, true, nil
}

func (r *OfferRepository) MarkViewed(_ context.Context, id uuid.UUID, at time.Time) (offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return offer.Offer{}, errors.Wrap(domain.ErrNotFound, "offers: mark viewed")
	}
	if o.ViewedAt == nil {
		viewed := at
		o.ViewedAt = &viewed
		r.s.offers[id] = o
	}
	return o, nil
}

func (r *OfferRepository) ListWithApplicationIn(_ context.Context, status offer.Status, appStatuses []application.Status, limit int) ([]offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]offer.Offer, 0)
	for _, o := range r.s.offers {
		if o.Status != status {
			continue
		}
		app, ok := r.s.applications[o.ApplicationID]
		if !ok || app.Deleted() || !contains(appStatuses, app.Status) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return r.s.inserted[out[i].ID] < r.s.inserted[out[j].ID] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
