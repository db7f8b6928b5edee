package sweep

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/payment"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
	"hirelane/internal/usecase/offers"
	"hirelane/internal/worker"
)

const (
	offerLockKey   = "sweep:lock:offers"
	paymentLockKey = "sweep:lock:payments"
)

type locker interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

type pipeline interface {
	AdvanceForOffer(ctx context.Context, actor domain.Actor, id uuid.UUID, target application.Status) (application.Application, bool, error)
}

type sessionVerifier interface {
	StaleSessions(ctx context.Context, grace time.Duration, limit int) ([]payment.Payment, error)
	VerifySession(ctx context.Context, sessionID string) (payment.Payment, error)
}

type Config struct {
	PaymentGrace  time.Duration
	BatchSize     int
	Workers       int
	RatePerSecond int
	LockTTL       time.Duration
}

type Deps struct {
	Offers   repository.OfferRepository
	Pipeline pipeline
	Payments sessionVerifier
	Locker   locker
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

type Service struct {
	offers   repository.OfferRepository
	pipeline pipeline
	payments sessionVerifier
	locker   locker
	metrics  *metrics.Collector
	logger   *zap.Logger
	cfg      Config
	owner    string
}

// Report counts what one pass looked at and fixed.
type Report struct {
	OffersChecked   int
	OffersRepaired  int
	PaymentsChecked int
	PaymentsSettled int
	Skipped         []string
}

func NewService(d Deps, cfg Config) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if cfg.PaymentGrace <= 0 {
		cfg.PaymentGrace = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 50 * time.Second
	}
	host, _ := os.Hostname()
	return &Service{
		offers:   d.Offers,
		pipeline: d.Pipeline,
		payments: d.Payments,
		locker:   d.Locker,
		metrics:  d.Metrics,
		logger:   d.Logger,
		cfg:      cfg,
		owner:    host + ":" + strconv.Itoa(os.Getpid()),
	}
}

// RunOnce runs both sweeps. Each one is skipped when another replica holds
// its lock.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	var (
		rep  Report
		errs error
	)

	if s.acquire(ctx, offerLockKey) {
		checked, repaired, err := s.repairOffers(ctx)
		rep.OffersChecked, rep.OffersRepaired = checked, repaired
		errs = multierr.Append(errs, err)
	} else {
		rep.Skipped = append(rep.Skipped, "offers")
	}

	if s.acquire(ctx, paymentLockKey) {
		checked, settled, err := s.verifyPayments(ctx)
		rep.PaymentsChecked, rep.PaymentsSettled = checked, settled
		errs = multierr.Append(errs, err)
	} else {
		rep.Skipped = append(rep.Skipped, "payments")
	}

	s.logger.Info("sweep finished",
		zap.Int("offers_checked", rep.OffersChecked),
		zap.Int("offers_repaired", rep.OffersRepaired),
		zap.Int("payments_checked", rep.PaymentsChecked),
		zap.Int("payments_settled", rep.PaymentsSettled),
		zap.Strings("skipped", rep.Skipped),
		zap.Error(errs),
	)
	return rep, errs
}

// Loop runs RunOnce every interval until ctx ends.
func (s *Service) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("sweep pass had errors", zap.Error(err))
			}
		}
	}
}

// repairOffers finds decided offers whose application never caught up and
// replays the feedback.
func (s *Service) repairOffers(ctx context.Context) (int, int, error) {
	if s.offers == nil || s.pipeline == nil {
		return 0, 0, nil
	}
	var (
		checked, repaired int
		errs              error
	)
	for st, target := range offers.Feedback {
		lagging := laggingBehind(target)
		if len(lagging) == 0 {
			continue
		}
		found, err := s.offers.ListWithApplicationIn(ctx, st, lagging, s.cfg.BatchSize)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, o := range found {
			checked++
			_, changed, err := s.pipeline.AdvanceForOffer(ctx, domain.SystemActor(), o.ApplicationID, target)
			if err != nil {
				s.logger.Warn("offer repair failed",
					zap.Stringer("offer_id", o.ID),
					zap.Stringer("application_id", o.ApplicationID),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}
			if changed {
				repaired++
				s.logger.Info("offer feedback repaired",
					zap.Stringer("offer_id", o.ID),
					zap.Stringer("application_id", o.ApplicationID),
					zap.String("target", string(target)),
				)
			}
		}
	}
	s.metrics.RecordSweepRepair("offers", repaired)
	return checked, repaired, errs
}

// verifyPayments polls the gateway for checkouts still open past the grace
// period, through a rate-limited pool.
func (s *Service) verifyPayments(ctx context.Context) (int, int, error) {
	if s.payments == nil {
		return 0, 0, nil
	}
	stale, err := s.payments.StaleSessions(ctx, s.cfg.PaymentGrace, s.cfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}
	if len(stale) == 0 {
		return 0, 0, nil
	}

	settled := make(chan string, len(stale))
	tasks := make([]worker.Task, 0, len(stale))
	for _, p := range stale {
		sessionID := p.SessionID
		tasks = append(tasks, worker.Task{
			Key: sessionID,
			Run: func(ctx context.Context) error {
				after, err := s.payments.VerifySession(ctx, sessionID)
				if err != nil {
					return err
				}
				if after.Status != payment.StatusCreated {
					settled <- sessionID
				}
				return nil
			},
		})
	}

	var errs error
	for _, r := range worker.RunAll(ctx, s.cfg.Workers, s.cfg.RatePerSecond, tasks) {
		if r.Err != nil {
			s.logger.Warn("payment verify failed", zap.String("session_id", r.Key), zap.Error(r.Err))
			errs = multierr.Append(errs, r.Err)
		}
	}
	close(settled)

	n := 0
	for range settled {
		n++
	}
	s.metrics.RecordSweepRepair("payments", n)
	return len(stale), n, errs
}

func (s *Service) acquire(ctx context.Context, key string) bool {
	if s.locker == nil {
		return true
	}
	ok, err := s.locker.SetIfNotExists(ctx, key, s.owner, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn("sweep lock failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// laggingBehind lists the statuses from which target is still a legal,
// not-yet-reached move.
func laggingBehind(target application.Status) []application.Status {
	all := []application.Status{
		application.StatusNew,
		application.StatusReviewing,
		application.StatusInterview,
		application.StatusInterviewScheduled,
		application.StatusOffer,
		application.StatusOfferPending,
		application.StatusOfferAccepted,
		application.StatusOfferDeclined,
	}
	out := make([]application.Status, 0, len(all))
	for _, st := range all {
		if !application.Reached(st, target) && application.CanTransition(st, target) {
			out = append(out, st)
		}
	}
	return out
}
