package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/notification"
	"hirelane/internal/domain/offer"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
)

// pipeline is the slice of the application manager offers depend on.
type pipeline interface {
	Parties(ctx context.Context, actor domain.Actor, id uuid.UUID) (application.Application, uuid.UUID, error)
	AdvanceForOffer(ctx context.Context, actor domain.Actor, id uuid.UUID, target application.Status) (application.Application, bool, error)
}

type notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]notification.Notification, error)
}

// Feedback maps an offer status onto the application status it drives.
var Feedback = map[offer.Status]application.Status{
	offer.StatusSent:     application.StatusOfferPending,
	offer.StatusAccepted: application.StatusOfferAccepted,
	offer.StatusDeclined: application.StatusOfferDeclined,
}

type Deps struct {
	Offers   repository.OfferRepository
	Pipeline pipeline
	Notifier notifier
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

type Service struct {
	offers   repository.OfferRepository
	pipeline pipeline
	notifier notifier
	metrics  *metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		offers:   d.Offers,
		pipeline: d.Pipeline,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, applicationID uuid.UUID, t offer.Terms) (offer.Offer, error) {
	app, owner, err := s.pipeline.Parties(ctx, actor, applicationID)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != owner {
		return offer.Offer{}, fmt.Errorf("%w: only the job owner makes offers", domain.ErrForbidden)
	}
	if app.Status.Terminal() || app.Status == application.StatusOfferDeclined {
		return offer.Offer{}, fmt.Errorf("offer on application in %s: %w", app.Status, domain.ErrInvalidState)
	}
	t, err = s.validateTerms(t)
	if err != nil {
		return offer.Offer{}, err
	}

	now := s.now().UTC()
	o := offer.Offer{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		CreatedBy:     actor.ID,
		Status:        offer.StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}.WithTerms(t)
	if err := s.offers.Create(ctx, o); err != nil {
		return offer.Offer{}, fmt.Errorf("create offer: %w", err)
	}
	s.logger.Info("offer drafted", zap.Stringer("offer_id", o.ID), zap.Stringer("application_id", applicationID))
	return o, nil
}

func (s *Service) UpdateDraft(ctx context.Context, actor domain.Actor, id uuid.UUID, t offer.Terms) (offer.Offer, error) {
	o, _, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != owner {
		return offer.Offer{}, fmt.Errorf("%w: only the job owner edits offers", domain.ErrForbidden)
	}
	t, err = s.validateTerms(t)
	if err != nil {
		return offer.Offer{}, err
	}

	updated, ok, err := s.offers.UpdateTerms(ctx, o.ID, t, s.now().UTC())
	if err != nil {
		return offer.Offer{}, err
	}
	if !ok {
		return offer.Offer{}, fmt.Errorf("edit offer in %s: %w", updated.Status, domain.ErrInvalidTransition)
	}
	return updated, nil
}

func (s *Service) Send(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	o, app, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != owner {
		return offer.Offer{}, fmt.Errorf("%w: only the job owner sends offers", domain.ErrForbidden)
	}
	if app.Status.Terminal() || app.Status == application.StatusOfferDeclined {
		return offer.Offer{}, fmt.Errorf("send offer on application in %s: %w", app.Status, domain.ErrInvalidState)
	}
	if o.Expired(s.now()) {
		return offer.Offer{}, fmt.Errorf("%w: response deadline already passed", domain.ErrValidation)
	}

	sent, err := s.move(ctx, o, []offer.Status{offer.StatusDraft}, offer.StatusSent, nil)
	if err != nil {
		return offer.Offer{}, err
	}
	s.feedback(ctx, actor, sent)
	s.notify(ctx, notification.Event{
		Kind:    notification.KindOfferSent,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{app.TalentID, owner},
		Title:   "New offer",
		Message: fmt.Sprintf("You received an offer for %s.", sent.PositionTitle),
		Data:    offerData(sent),
	})
	return sent, nil
}

func (s *Service) MarkViewed(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	o, app, _, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != app.TalentID || o.Status == offer.StatusDraft {
		return o, nil
	}
	return s.offers.MarkViewed(ctx, id, s.now().UTC())
}

func (s *Service) Accept(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	return s.respond(ctx, actor, id, offer.StatusAccepted)
}

func (s *Service) Decline(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	return s.respond(ctx, actor, id, offer.StatusDeclined)
}

// respond records the talent's answer, then feeds the application. The two
// writes are sequential; the offer sweep repairs a lagging application.
func (s *Service) respond(ctx context.Context, actor domain.Actor, id uuid.UUID, to offer.Status) (offer.Offer, error) {
	o, app, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != app.TalentID {
		return offer.Offer{}, fmt.Errorf("%w: only the applicant answers an offer", domain.ErrForbidden)
	}
	if app.Status.Terminal() {
		return offer.Offer{}, fmt.Errorf("answer offer on application in %s: %w", app.Status, domain.ErrInvalidState)
	}
	now := s.now().UTC()
	if o.Status == offer.StatusSent && o.Expired(now) {
		return offer.Offer{}, fmt.Errorf("%w: offer expired", domain.ErrValidation)
	}

	updated, err := s.move(ctx, o, []offer.Status{offer.StatusSent}, to, &now)
	if err != nil {
		return offer.Offer{}, err
	}
	s.feedback(ctx, actor, updated)

	kind, verb := notification.KindOfferAccepted, "accepted"
	if to == offer.StatusDeclined {
		kind, verb = notification.KindOfferDeclined, "declined"
	}
	s.notify(ctx, notification.Event{
		Kind:    kind,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{app.TalentID, owner},
		Title:   "Offer " + verb,
		Message: fmt.Sprintf("The offer for %s was %s.", updated.PositionTitle, verb),
		Data:    offerData(updated),
	})
	return updated, nil
}

func (s *Service) Withdraw(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	o, app, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	if actor.ID != owner && !actor.IsAdmin() {
		return offer.Offer{}, fmt.Errorf("%w: only the job owner withdraws offers", domain.ErrForbidden)
	}
	wasSent := o.Status == offer.StatusSent

	updated, err := s.move(ctx, o, []offer.Status{offer.StatusDraft, offer.StatusSent}, offer.StatusWithdrawn, nil)
	if err != nil {
		return offer.Offer{}, err
	}
	if wasSent {
		s.notify(ctx, notification.Event{
			Kind:    notification.KindOfferWithdrawn,
			ActorID: actor.Ref(),
			Parties: []uuid.UUID{app.TalentID, owner},
			Title:   "Offer withdrawn",
			Message: fmt.Sprintf("The offer for %s was withdrawn.", updated.PositionTitle),
			Data:    offerData(updated),
		})
	}
	return updated, nil
}

// Get hides drafts from the applicant.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, error) {
	o, _, _, err := s.load(ctx, actor, id)
	if err != nil {
		return offer.Offer{}, err
	}
	return o, nil
}

func (s *Service) ListForApplication(ctx context.Context, actor domain.Actor, applicationID uuid.UUID) ([]offer.Offer, error) {
	app, _, err := s.pipeline.Parties(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	all, err := s.offers.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if actor.ID != app.TalentID {
		return all, nil
	}
	out := make([]offer.Offer, 0, len(all))
	for _, o := range all {
		if o.Status != offer.StatusDraft {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) move(ctx context.Context, o offer.Offer, from []offer.Status, to offer.Status, respondedAt *time.Time) (offer.Offer, error) {
	updated, ok, err := s.offers.CompareAndSet(ctx, o.ID, from, to, respondedAt, s.now().UTC())
	if err != nil {
		return offer.Offer{}, err
	}
	if !ok {
		return offer.Offer{}, fmt.Errorf("offer %s %s -> %s: %w", o.ID, updated.Status, to, domain.ErrInvalidTransition)
	}
	s.metrics.RecordTransition("offer", string(to))
	s.logger.Info("offer transition",
		zap.Stringer("offer_id", o.ID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// feedback pushes the offer outcome into the application pipeline. Failures
// are logged; the sweep retries them.
func (s *Service) feedback(ctx context.Context, actor domain.Actor, o offer.Offer) {
	target, ok := Feedback[o.Status]
	if !ok || s.pipeline == nil {
		return
	}
	if _, _, err := s.pipeline.AdvanceForOffer(ctx, actor, o.ApplicationID, target); err != nil {
		s.logger.Error("offer feedback to application failed",
			zap.Stringer("offer_id", o.ID),
			zap.Stringer("application_id", o.ApplicationID),
			zap.String("target", string(target)),
			zap.Error(err),
		)
	}
}

func (s *Service) load(ctx context.Context, actor domain.Actor, id uuid.UUID) (offer.Offer, application.Application, uuid.UUID, error) {
	o, err := s.offers.GetByID(ctx, id)
	if err != nil {
		return offer.Offer{}, application.Application{}, uuid.Nil, err
	}
	app, owner, err := s.pipeline.Parties(ctx, actor, o.ApplicationID)
	if err != nil {
		return offer.Offer{}, application.Application{}, uuid.Nil, err
	}
	if actor.ID == app.TalentID && o.Status == offer.StatusDraft {
		return offer.Offer{}, application.Application{}, uuid.Nil, fmt.Errorf("offer %s: %w", id, domain.ErrNotFound)
	}
	return o, app, owner, nil
}

func (s *Service) validateTerms(t offer.Terms) (offer.Terms, error) {
	t.PositionTitle = strings.TrimSpace(t.PositionTitle)
	t.SalaryCurrency = strings.ToUpper(strings.TrimSpace(t.SalaryCurrency))
	t.ContractTerms = strings.TrimSpace(t.ContractTerms)

	switch {
	case t.PositionTitle == "":
		return t, fmt.Errorf("%w: position title is required", domain.ErrValidation)
	case t.SalaryAmount <= 0:
		return t, fmt.Errorf("%w: salary amount must be positive", domain.ErrValidation)
	case len(t.SalaryCurrency) != 3:
		return t, fmt.Errorf("%w: salary currency must be a 3-letter code", domain.ErrValidation)
	case !t.SalaryType.Valid():
		return t, fmt.Errorf("%w: unknown salary type %q", domain.ErrValidation, t.SalaryType)
	case t.ResponseDeadline != nil && !t.ResponseDeadline.After(s.now()):
		return t, fmt.Errorf("%w: response deadline must be in the future", domain.ErrValidation)
	}
	return t, nil
}

func offerData(o offer.Offer) map[string]string {
	return map[string]string{
		"offer_id":       o.ID.String(),
		"application_id": o.ApplicationID.String(),
		"status":         string(o.Status),
	}
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(ctx, ev); err != nil {
		s.logger.Error("offer notification failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
