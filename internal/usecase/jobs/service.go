package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/notification"
	"hirelane/internal/domain/payment"
	"hirelane/internal/infrastructure/gateway"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
)

const publicListingPattern = "jobs:public:*"

type listingCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]notification.Notification, error)
}

type Config struct {
	ListingPrice int64
	Currency     string
	SuccessURL   string
	CancelURL    string
	CallTimeout  time.Duration
	PublicTTL    time.Duration
}

type Deps struct {
	Jobs     repository.JobRepository
	Payments repository.PaymentRepository
	Gateway  gateway.Gateway
	Cache    listingCache
	Notifier notifier
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

type Service struct {
	jobs     repository.JobRepository
	payments repository.PaymentRepository
	gateway  gateway.Gateway
	cache    listingCache
	notifier notifier
	metrics  *metrics.Collector
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

func NewService(d Deps, cfg Config) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.PublicTTL <= 0 {
		cfg.PublicTTL = time.Minute
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		jobs:     d.Jobs,
		payments: d.Payments,
		gateway:  d.Gateway,
		cache:    d.Cache,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

type CreateInput struct {
	Title       string
	Location    string
	Description string
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (job.Job, error) {
	if actor.Role != domain.RoleBusiness {
		return job.Job{}, fmt.Errorf("%w: only business users post jobs", domain.ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return job.Job{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	j := job.Job{
		ID:          uuid.New(),
		OwnerID:     actor.ID,
		Title:       title,
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		Status:      job.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Create(ctx, j); err != nil {
		return job.Job{}, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("job created", zap.Stringer("job_id", j.ID), zap.Stringer("owner_id", j.OwnerID))
	return j, nil
}

// Get hides non-public jobs from everyone but the owner and admins.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (job.Job, error) {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return job.Job{}, err
	}
	if j.IsPublic || actor.IsAdmin() || (!actor.IsSystem() && j.OwnerID == actor.ID) {
		return j, nil
	}
	return job.Job{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
}

func (s *Service) ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]job.Job, error) {
	if actor.IsSystem() {
		return nil, domain.ErrForbidden
	}
	return s.jobs.ListByOwner(ctx, actor.ID, limit, offset)
}

func (s *Service) ListPublic(ctx context.Context, limit, offset int) ([]job.Job, error) {
	key := "jobs:public:" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
	if s.cache != nil {
		var cached []job.Job
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	out, err := s.jobs.ListPublic(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, s.cfg.PublicTTL); err != nil {
			s.logger.Warn("public listing cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// Checkout is what the owner needs to complete payment.
type Checkout struct {
	Job         job.Job
	SessionID   string
	RedirectURL string
}

// SubmitForPayment opens a gateway checkout and moves a draft job to
// pending_payment. An abandoned created payment from an earlier attempt is
// expired first.
func (s *Service) SubmitForPayment(ctx context.Context, actor domain.Actor, id uuid.UUID) (Checkout, error) {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return Checkout{}, err
	}
	if actor.IsSystem() || j.OwnerID != actor.ID {
		return Checkout{}, fmt.Errorf("%w: not the job owner", domain.ErrForbidden)
	}
	if j.Status != job.StatusDraft {
		return Checkout{}, fmt.Errorf("submit job %s from %s: %w", id, j.Status, domain.ErrInvalidState)
	}
	if s.gateway == nil {
		return Checkout{}, errors.New("submit for payment: no payment gateway configured")
	}

	prev, err := s.payments.GetLatestByJobID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return Checkout{}, err
	case prev.Status == payment.StatusSucceeded:
		if _, _, rerr := s.ReconcilePaymentSucceeded(ctx, id); rerr != nil {
			return Checkout{}, rerr
		}
		return Checkout{}, fmt.Errorf("%w: job %s is already paid", domain.ErrConflict, id)
	case prev.Status == payment.StatusCreated:
		if _, _, err := s.payments.CompareAndSet(ctx, prev.SessionID,
			[]payment.Status{payment.StatusCreated}, payment.StatusFailed, nil, s.now().UTC()); err != nil {
			return Checkout{}, fmt.Errorf("expire abandoned payment: %w", err)
		}
		s.logger.Info("abandoned payment expired",
			zap.Stringer("job_id", id), zap.String("session_id", prev.SessionID))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	started := time.Now()
	co, err := s.gateway.CreateCheckoutSession(callCtx, gateway.CheckoutRequest{
		JobID:      id,
		Amount:     s.cfg.ListingPrice,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	cancel()
	s.metrics.ObserveGatewayCall("create_checkout", started, err)
	if err != nil {
		return Checkout{}, fmt.Errorf("create checkout session: %w", err)
	}

	now := s.now().UTC()
	p := payment.Payment{
		ID:        uuid.New(),
		JobID:     id,
		PayerID:   actor.ID,
		Amount:    s.cfg.ListingPrice,
		Currency:  s.cfg.Currency,
		Status:    payment.StatusCreated,
		SessionID: co.SessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return Checkout{}, fmt.Errorf("record payment: %w", err)
	}

	updated, ok, err := s.cas(ctx, id, job.Update{
		To: job.StatusPendingPayment,
		At: now,
	})
	if err != nil {
		return Checkout{}, err
	}
	if !ok {
		// a webhook for this very session can already have moved the job on
		if updated.Status != job.StatusInReview && updated.Status != job.StatusPendingPayment {
			return Checkout{}, fmt.Errorf("submit job %s from %s: %w", id, updated.Status, domain.ErrInvalidState)
		}
	} else {
		s.metrics.RecordTransition("job", string(job.StatusPendingPayment))
	}

	s.logger.Info("job submitted for payment",
		zap.Stringer("job_id", id), zap.String("session_id", co.SessionID))
	return Checkout{Job: updated, SessionID: co.SessionID, RedirectURL: co.RedirectURL}, nil
}

// ReconcilePaymentSucceeded is safe to call any number of times. The bool
// reports whether this call moved the job; only that caller notifies.
func (s *Service) ReconcilePaymentSucceeded(ctx context.Context, id uuid.UUID) (job.Job, bool, error) {
	paid := true
	j, ok, err := s.cas(ctx, id, job.Update{To: job.StatusInReview, IsPaid: &paid, At: s.now().UTC()})
	if err != nil {
		return job.Job{}, false, err
	}
	if !ok {
		switch j.Status {
		case job.StatusInReview, job.StatusActive:
			return j, false, nil
		default:
			return j, false, fmt.Errorf("reconcile payment for job %s in %s: %w", id, j.Status, domain.ErrInvalidTransition)
		}
	}

	s.metrics.RecordTransition("job", string(job.StatusInReview))
	s.logger.Info("job paid", zap.Stringer("job_id", id))
	s.notify(ctx, notification.Event{
		Kind:    notification.KindJobPaid,
		Parties: []uuid.UUID{j.OwnerID},
		Title:   "Payment received",
		Message: fmt.Sprintf("%q is paid and waiting for review.", j.Title),
		Data:    map[string]string{"job_id": j.ID.String()},
	})
	return j, true, nil
}

// ReleaseAfterFailedPayment puts a pending_payment job back to draft.
func (s *Service) ReleaseAfterFailedPayment(ctx context.Context, id uuid.UUID) (job.Job, bool, error) {
	j, ok, err := s.cas(ctx, id, job.Update{To: job.StatusDraft, At: s.now().UTC()})
	if err != nil {
		return job.Job{}, false, err
	}
	if ok {
		s.metrics.RecordTransition("job", string(job.StatusDraft))
		s.logger.Info("job released after failed payment", zap.Stringer("job_id", id))
	}
	return j, ok, nil
}

type Decision struct {
	Approve bool
	Reason  string
}

func (s *Service) Decide(ctx context.Context, actor domain.Actor, id uuid.UUID, d Decision) (job.Job, error) {
	if !actor.IsAdmin() {
		return job.Job{}, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}

	now := s.now().UTC()
	upd := job.Update{To: job.StatusActive, At: now}
	kind, title := notification.KindJobApproved, "Job approved"
	if d.Approve {
		upd.ApprovedBy = actor.Ref()
		upd.ApprovedAt = &now
	} else {
		reason := strings.TrimSpace(d.Reason)
		if reason == "" {
			return job.Job{}, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
		}
		upd.To = job.StatusRejected
		upd.RejectionReason = &reason
		kind, title = notification.KindJobRejected, "Job rejected"
	}

	j, err := s.apply(ctx, id, upd)
	if err != nil {
		return job.Job{}, err
	}

	msg := fmt.Sprintf("%q is now live.", j.Title)
	if !d.Approve {
		msg = fmt.Sprintf("%q was rejected: %s", j.Title, *upd.RejectionReason)
	}
	s.notify(ctx, notification.Event{
		Kind:    kind,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{j.OwnerID},
		Title:   title,
		Message: msg,
		Data:    map[string]string{"job_id": j.ID.String(), "status": string(j.Status)},
	})
	return j, nil
}

func (s *Service) Close(ctx context.Context, actor domain.Actor, id uuid.UUID) (job.Job, error) {
	cur, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return job.Job{}, err
	}
	if !actor.IsAdmin() && (actor.IsSystem() || cur.OwnerID != actor.ID) {
		return job.Job{}, fmt.Errorf("%w: not the job owner", domain.ErrForbidden)
	}

	j, err := s.apply(ctx, id, job.Update{To: job.StatusClosed, At: s.now().UTC()})
	if err != nil {
		return job.Job{}, err
	}
	s.notify(ctx, notification.Event{
		Kind:    notification.KindJobClosed,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{j.OwnerID},
		Title:   "Job closed",
		Message: fmt.Sprintf("%q no longer accepts applications.", j.Title),
		Data:    map[string]string{"job_id": j.ID.String()},
	})
	return j, nil
}

// HandleRefund withdraws a paid job. Repeating it on a refunded job is a no-op.
func (s *Service) HandleRefund(ctx context.Context, id uuid.UUID) (job.Job, bool, error) {
	j, ok, err := s.cas(ctx, id, job.Update{To: job.StatusPaymentRefunded, At: s.now().UTC()})
	if err != nil {
		return job.Job{}, false, err
	}
	if !ok {
		if j.Status == job.StatusPaymentRefunded {
			return j, false, nil
		}
		return j, false, fmt.Errorf("refund job %s in %s: %w", id, j.Status, domain.ErrInvalidTransition)
	}

	s.metrics.RecordTransition("job", string(job.StatusPaymentRefunded))
	s.invalidatePublic(ctx)
	s.logger.Info("job refunded", zap.Stringer("job_id", id))
	s.notify(ctx, notification.Event{
		Kind:    notification.KindJobRefunded,
		Parties: []uuid.UUID{j.OwnerID},
		Title:   "Payment refunded",
		Message: fmt.Sprintf("The listing fee for %q was refunded and the job is unpublished.", j.Title),
		Data:    map[string]string{"job_id": j.ID.String()},
	})
	return j, true, nil
}

func (s *Service) SetInterview(ctx context.Context, actor domain.Actor, id uuid.UUID, in job.Interview) (job.Job, error) {
	cur, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return job.Job{}, err
	}
	if actor.IsSystem() || cur.OwnerID != actor.ID {
		return job.Job{}, fmt.Errorf("%w: not the job owner", domain.ErrForbidden)
	}
	if in.ConversationID != nil {
		c := strings.TrimSpace(*in.ConversationID)
		if c == "" {
			in.ConversationID = nil
		} else {
			in.ConversationID = &c
		}
	}
	if in.Active && in.ConversationID == nil {
		return job.Job{}, fmt.Errorf("%w: an active interview needs a conversation id", domain.ErrValidation)
	}

	j, err := s.jobs.SetInterview(ctx, id, in, s.now().UTC())
	if err != nil {
		return job.Job{}, err
	}
	if j.IsPublic {
		s.invalidatePublic(ctx)
	}
	return j, nil
}

// apply runs a single CAS and turns a lost race into ErrInvalidTransition.
// cas moves the job to upd.To from any status the transition table allows.
func (s *Service) cas(ctx context.Context, id uuid.UUID, upd job.Update) (job.Job, bool, error) {
	return s.jobs.CompareAndSet(ctx, id, job.SourcesFor(upd.To), upd)
}

func (s *Service) apply(ctx context.Context, id uuid.UUID, upd job.Update) (job.Job, error) {
	j, ok, err := s.cas(ctx, id, upd)
	if err != nil {
		return job.Job{}, err
	}
	if !ok {
		return job.Job{}, fmt.Errorf("job %s %s -> %s: %w", id, j.Status, upd.To, domain.ErrInvalidTransition)
	}
	s.metrics.RecordTransition("job", string(upd.To))
	s.logger.Info("job transition",
		zap.Stringer("job_id", id),
		zap.String("to", string(upd.To)),
	)
	if upd.To == job.StatusActive || upd.To == job.StatusClosed {
		s.invalidatePublic(ctx)
	}
	return j, nil
}

func (s *Service) invalidatePublic(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, publicListingPattern); err != nil {
		s.logger.Warn("public listing cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(ctx, ev); err != nil {
		s.logger.Error("job notification failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
