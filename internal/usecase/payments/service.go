package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/payment"
	"hirelane/internal/infrastructure/gateway"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
)

// Outcome labels what a webhook delivery did. It feeds metrics and the
// acknowledgement body.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"
)

// jobLifecycle is the part of the job manager that payments drive.
type jobLifecycle interface {
	ReconcilePaymentSucceeded(ctx context.Context, id uuid.UUID) (job.Job, bool, error)
	ReleaseAfterFailedPayment(ctx context.Context, id uuid.UUID) (job.Job, bool, error)
	HandleRefund(ctx context.Context, id uuid.UUID) (job.Job, bool, error)
}

type Config struct {
	WebhookSecret string
	Tolerance     time.Duration
	CallTimeout   time.Duration
}

type Deps struct {
	Payments  repository.PaymentRepository
	Jobs      repository.JobRepository
	Lifecycle jobLifecycle
	Gateway   gateway.Gateway
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

type Service struct {
	payments  repository.PaymentRepository
	jobs      repository.JobRepository
	lifecycle jobLifecycle
	gateway   gateway.Gateway
	metrics   *metrics.Collector
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(d Deps, cfg Config) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = gateway.DefaultTolerance
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Service{
		payments:  d.Payments,
		jobs:      d.Jobs,
		lifecycle: d.Lifecycle,
		gateway:   d.Gateway,
		metrics:   d.Metrics,
		logger:    d.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// HandleWebhook verifies, records and applies one gateway delivery. Only a
// signature failure returns an error wrapping domain.ErrSignature; any other
// returned error has already been logged and should still be acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, signature string, body []byte) (Outcome, error) {
	now := s.now()
	if err := gateway.VerifySignature(s.cfg.WebhookSecret, signature, body, now, s.cfg.Tolerance); err != nil {
		s.metrics.RecordWebhook("unknown", string(OutcomeRejected))
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		return OutcomeRejected, err
	}

	var ev payment.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		s.metrics.RecordWebhook("unknown", string(OutcomeFailed))
		s.logger.Error("webhook payload undecodable", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("%w: decode webhook: %v", domain.ErrValidation, err)
	}
	ev.Normalize()
	ev.Raw = body
	if err := ev.Validate(); err != nil {
		s.metrics.RecordWebhook(string(ev.Type), string(OutcomeFailed))
		s.logger.Error("webhook payload invalid", zap.String("event_id", ev.ID), zap.Error(err))
		return OutcomeFailed, err
	}

	processed, err := s.payments.RecordWebhookEvent(ctx, payment.WebhookEvent{
		EventID:        ev.ID,
		Type:           ev.Type,
		SessionID:      ev.Data.SessionID,
		Payload:        body,
		SignatureValid: true,
		ReceivedAt:     now.UTC(),
	})
	if err != nil {
		s.metrics.RecordWebhook(string(ev.Type), string(OutcomeFailed))
		s.logger.Error("webhook event log failed", zap.String("event_id", ev.ID), zap.Error(err))
		return OutcomeFailed, err
	}
	if processed {
		s.metrics.RecordWebhook(string(ev.Type), string(OutcomeDuplicate))
		s.logger.Info("webhook duplicate skipped", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
		return OutcomeDuplicate, nil
	}

	outcome, perr := s.apply(ctx, ev)

	errText := ""
	if perr != nil {
		errText = perr.Error()
	}
	if err := s.payments.MarkWebhookEventProcessed(ctx, ev.ID, errText, s.now().UTC()); err != nil {
		s.logger.Error("webhook event mark failed", zap.String("event_id", ev.ID), zap.Error(err))
	}

	s.metrics.RecordWebhook(string(ev.Type), string(outcome))
	if perr != nil {
		s.logger.Error("webhook processing failed",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.String("session_id", ev.Data.SessionID),
			zap.Error(perr),
		)
		return outcome, perr
	}
	s.logger.Info("webhook processed",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("session_id", ev.Data.SessionID),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

func (s *Service) apply(ctx context.Context, ev payment.Event) (Outcome, error) {
	var intent *string
	if ev.Data.PaymentIntentID != "" {
		v := ev.Data.PaymentIntentID
		intent = &v
	}

	switch ev.Type {
	case payment.EventCheckoutCompleted:
		return s.settleSucceeded(ctx, ev.Data.SessionID, intent)
	case payment.EventPaymentFailed:
		return s.settleFailed(ctx, ev.Data.SessionID)
	case payment.EventChargeRefunded:
		return s.settleRefunded(ctx, ev.Data.SessionID, intent)
	default:
		s.logger.Info("webhook type ignored", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
		return OutcomeIgnored, nil
	}
}

// settleSucceeded always reconciles the job, so a crash between the payment
// write and the job write heals on redelivery.
func (s *Service) settleSucceeded(ctx context.Context, sessionID string, intent *string) (Outcome, error) {
	p, changed, err := s.payments.CompareAndSet(ctx, sessionID,
		[]payment.Status{payment.StatusCreated, payment.StatusFailed},
		payment.StatusSucceeded, intent, s.now().UTC())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("settle succeeded %s: %w", sessionID, err)
	}
	if changed {
		s.metrics.RecordTransition("payment", string(payment.StatusSucceeded))
	}
	if p.Status != payment.StatusSucceeded {
		s.logger.Info("late checkout completion ignored",
			zap.String("session_id", sessionID), zap.String("payment_status", string(p.Status)))
		return OutcomeIgnored, nil
	}

	if _, _, err := s.lifecycle.ReconcilePaymentSucceeded(ctx, p.JobID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Warn("paid job cannot enter review",
				zap.Stringer("job_id", p.JobID), zap.Error(err))
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, err
	}
	return OutcomeProcessed, nil
}

func (s *Service) settleFailed(ctx context.Context, sessionID string) (Outcome, error) {
	p, changed, err := s.payments.CompareAndSet(ctx, sessionID,
		[]payment.Status{payment.StatusCreated},
		payment.StatusFailed, nil, s.now().UTC())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("settle failed %s: %w", sessionID, err)
	}
	if !changed {
		s.logger.Info("late payment failure ignored",
			zap.String("session_id", sessionID), zap.String("payment_status", string(p.Status)))
		return OutcomeIgnored, nil
	}
	s.metrics.RecordTransition("payment", string(payment.StatusFailed))

	if _, _, err := s.lifecycle.ReleaseAfterFailedPayment(ctx, p.JobID); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeProcessed, nil
}

// settleRefunded first settles a payment whose completion event has not
// arrived yet: a refunded charge was paid, and a late checkout.completed must
// find the payment already past succeeded.
func (s *Service) settleRefunded(ctx context.Context, sessionID string, intent *string) (Outcome, error) {
	cur, err := s.payments.GetBySessionID(ctx, sessionID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("settle refunded %s: %w", sessionID, err)
	}
	if cur.Status == payment.StatusCreated || cur.Status == payment.StatusFailed {
		s.logger.Info("refund arrived before completion",
			zap.String("session_id", sessionID), zap.String("payment_status", string(cur.Status)))
		if _, err := s.settleSucceeded(ctx, sessionID, intent); err != nil {
			return OutcomeFailed, err
		}
	}

	now := s.now().UTC()
	p, changed, err := s.payments.CompareAndSet(ctx, sessionID,
		[]payment.Status{payment.StatusSucceeded, payment.StatusRefundRequested},
		payment.StatusRefunded, intent, now)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("settle refunded %s: %w", sessionID, err)
	}
	if p.Status != payment.StatusRefunded {
		s.logger.Info("refund for unsettled session ignored",
			zap.String("session_id", sessionID), zap.String("payment_status", string(p.Status)))
		return OutcomeIgnored, nil
	}
	if changed {
		s.metrics.RecordTransition("payment", string(payment.StatusRefunded))
	}

	if n, err := s.payments.ApprovePendingRefunds(ctx, p.ID, now); err != nil {
		return OutcomeFailed, err
	} else if n > 0 {
		s.logger.Info("refund requests approved", zap.Stringer("payment_id", p.ID), zap.Int64("count", n))
	}

	if _, _, err := s.lifecycle.HandleRefund(ctx, p.JobID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Warn("refunded job not withdrawable", zap.Stringer("job_id", p.JobID), zap.Error(err))
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, err
	}
	return OutcomeProcessed, nil
}

// VerifySession polls the gateway for a session the webhook may have missed.
// Anything short of a terminal answer leaves the ledger alone.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (payment.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return payment.Payment{}, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	p, err := s.payments.GetBySessionID(ctx, sessionID)
	if err != nil {
		return payment.Payment{}, err
	}
	if s.gateway == nil {
		return p, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	started := time.Now()
	st, err := s.gateway.PollSessionStatus(callCtx, sessionID)
	cancel()
	s.metrics.ObserveGatewayCall("poll_session", started, err)
	if err != nil {
		s.logger.Warn("session poll failed", zap.String("session_id", sessionID), zap.Error(err))
		return p, nil
	}
	if !st.Terminal() {
		return p, nil
	}

	var intent *string
	if st.PaymentIntentID != "" {
		v := st.PaymentIntentID
		intent = &v
	}

	switch st.State {
	case payment.SessionPaid:
		_, err = s.settleSucceeded(ctx, sessionID, intent)
	case payment.SessionFailed, payment.SessionExpired:
		_, err = s.settleFailed(ctx, sessionID)
	case payment.SessionRefunded:
		_, err = s.settleRefunded(ctx, sessionID, intent)
	}
	if err != nil {
		return payment.Payment{}, err
	}
	return s.payments.GetBySessionID(ctx, sessionID)
}

// VerifyForActor lets the job owner or an admin trigger VerifySession.
func (s *Service) VerifyForActor(ctx context.Context, actor domain.Actor, sessionID string) (payment.Payment, error) {
	p, err := s.payments.GetBySessionID(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return payment.Payment{}, err
	}
	if !actor.IsAdmin() && (actor.IsSystem() || p.PayerID != actor.ID) {
		return payment.Payment{}, fmt.Errorf("%w: not the payer", domain.ErrForbidden)
	}
	return s.VerifySession(ctx, sessionID)
}

// RequestRefund records the owner's wish to be refunded. The gateway's
// charge.refunded event completes it.
func (s *Service) RequestRefund(ctx context.Context, actor domain.Actor, jobID uuid.UUID, reason string) (payment.RefundRequest, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return payment.RefundRequest{}, err
	}
	if actor.IsSystem() || j.OwnerID != actor.ID {
		return payment.RefundRequest{}, fmt.Errorf("%w: not the job owner", domain.ErrForbidden)
	}

	p, err := s.payments.GetLatestByJobID(ctx, jobID)
	if err != nil {
		return payment.RefundRequest{}, err
	}
	rr := payment.RefundRequest{
		ID:          uuid.New(),
		PaymentID:   p.ID,
		RequestedBy: actor.ID,
		Reason:      strings.TrimSpace(reason),
		Status:      payment.RefundPending,
		CreatedAt:   s.now().UTC(),
	}
	updated, ok, err := s.payments.RequestRefund(ctx, p.SessionID, rr)
	if err != nil {
		return payment.RefundRequest{}, err
	}
	if !ok {
		return payment.RefundRequest{}, fmt.Errorf("refund payment in %s: %w", updated.Status, domain.ErrInvalidTransition)
	}
	s.metrics.RecordTransition("payment", string(payment.StatusRefundRequested))
	s.logger.Info("refund requested", zap.Stringer("job_id", jobID), zap.Stringer("payment_id", updated.ID))
	return rr, nil
}

// StaleSessions lists created payments older than grace, for the sweep.
func (s *Service) StaleSessions(ctx context.Context, grace time.Duration, limit int) ([]payment.Payment, error) {
	return s.payments.ListByStatusBefore(ctx, payment.StatusCreated, s.now().UTC().Add(-grace), limit)
}
