package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/notification"
	"hirelane/internal/domain/payment"
	"hirelane/internal/infrastructure/gateway"
	"hirelane/internal/repository/memory"
	"hirelane/internal/usecase/jobs"
)

const secret = "whsec_test"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recordingNotifier) Dispatch(_ context.Context, ev notification.Event) ([]notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil, nil
}

func (r *recordingNotifier) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *Service
	jobs     *jobs.Service
	store    *memory.Store
	gw       *gateway.Fake
	notifier *recordingNotifier
	owner    domain.Actor
	admin    domain.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	gw := gateway.NewFake()
	n := &recordingNotifier{}
	jobSvc := jobs.NewService(jobs.Deps{
		Jobs:     store.Jobs(),
		Payments: store.Payments(),
		Gateway:  gw,
		Notifier: n,
	}, jobs.Config{ListingPrice: 4900})
	svc := NewService(Deps{
		Payments:  store.Payments(),
		Jobs:      store.Jobs(),
		Lifecycle: jobSvc,
		Gateway:   gw,
	}, Config{WebhookSecret: secret})
	return fixture{
		svc:      svc,
		jobs:     jobSvc,
		store:    store,
		gw:       gw,
		notifier: n,
		owner:    domain.Actor{ID: uuid.New(), Role: domain.RoleBusiness},
		admin:    domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	}
}

// submitted returns a job waiting on its checkout session.
func (f fixture) submitted(t *testing.T) (job.Job, string) {
	t.Helper()
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, f.owner, jobs.CreateInput{Title: "Data Engineer"})
	require.NoError(t, err)
	co, err := f.jobs.SubmitForPayment(ctx, f.owner, j.ID)
	require.NoError(t, err)
	return co.Job, co.SessionID
}

func (f fixture) deliver(t *testing.T, eventID string, typ payment.EventType, sessionID string) (Outcome, error) {
	t.Helper()
	body := []byte(fmt.Sprintf(`{"id":%q,"type":%q,"created":1700000000,"data":{"session_id":%q,"payment_intent_id":"pi_1"}}`,
		eventID, typ, sessionID))
	return f.svc.HandleWebhook(context.Background(), gateway.Sign(secret, body, time.Now()), body)
}

func (f fixture) jobStatus(t *testing.T, id uuid.UUID) job.Job {
	t.Helper()
	j, err := f.store.Jobs().GetByID(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (f fixture) paymentStatus(t *testing.T, sessionID string) payment.Payment {
	t.Helper()
	p, err := f.store.Payments().GetBySessionID(context.Background(), sessionID)
	require.NoError(t, err)
	return p
}

func TestCheckoutCompletedMovesJobToReview(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	outcome, err := f.deliver(t, "evt_1", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	got := f.jobStatus(t, j.ID)
	assert.Equal(t, job.StatusInReview, got.Status)
	assert.True(t, got.IsPaid)
	assert.False(t, got.IsPublic)

	p := f.paymentStatus(t, session)
	assert.Equal(t, payment.StatusSucceeded, p.Status)
	require.NotNil(t, p.PaymentIntentID)
	assert.Equal(t, "pi_1", *p.PaymentIntentID)

	ev, ok := f.store.WebhookEvent("evt_1")
	require.True(t, ok)
	assert.NotNil(t, ev.ProcessedAt)
	assert.True(t, ev.SignatureValid)
}

func TestDuplicateWebhookIsAppliedOnce(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	outcome, err := f.deliver(t, "evt_1", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = f.deliver(t, "evt_1", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// a fresh event id for the same session reconciles without moving the job again
	outcome, err = f.deliver(t, "evt_2", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	assert.Equal(t, job.StatusInReview, f.jobStatus(t, j.ID).Status)
	assert.Equal(t, 1, f.notifier.count(notification.KindJobPaid))
}

func TestConcurrentDeliveriesMoveJobOnce(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := []byte(fmt.Sprintf(`{"id":"evt_same","type":"checkout.completed","data":{"session_id":%q}}`, session))
			_, err := f.svc.HandleWebhook(context.Background(), gateway.Sign(secret, body, time.Now()), body)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, job.StatusInReview, f.jobStatus(t, j.ID).Status)
	assert.Equal(t, 1, f.notifier.count(notification.KindJobPaid))
}

func TestWebhookBadSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	body := []byte(fmt.Sprintf(`{"id":"evt_1","type":"checkout.completed","data":{"session_id":%q}}`, session))
	outcome, err := f.svc.HandleWebhook(context.Background(), gateway.Sign("other", body, time.Now()), body)
	assert.ErrorIs(t, err, domain.ErrSignature)
	assert.Equal(t, OutcomeRejected, outcome)

	_, logged := f.store.WebhookEvent("evt_1")
	assert.False(t, logged)
	assert.Equal(t, job.StatusPendingPayment, f.jobStatus(t, j.ID).Status)
	assert.Equal(t, payment.StatusCreated, f.paymentStatus(t, session).Status)
}

func TestWebhookMalformedPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := []byte(`{"type":"checkout.completed","data":{}}`)
	outcome, err := f.svc.HandleWebhook(ctx, gateway.Sign(secret, body, time.Now()), body)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, errors.Is(err, domain.ErrSignature))
	assert.Equal(t, OutcomeFailed, outcome)

	body = []byte(`not json`)
	outcome, err = f.svc.HandleWebhook(ctx, gateway.Sign(secret, body, time.Now()), body)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestWebhookUnknownTypeIsIgnored(t *testing.T) {
	f := newFixture(t)
	_, session := f.submitted(t)

	outcome, err := f.deliver(t, "evt_x", payment.EventType("customer.created"), session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	ev, ok := f.store.WebhookEvent("evt_x")
	require.True(t, ok)
	assert.NotNil(t, ev.ProcessedAt)
}

func TestWebhookUnknownSessionStaysRetryable(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.deliver(t, "evt_1", payment.EventCheckoutCompleted, "cs_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, OutcomeFailed, outcome)

	ev, ok := f.store.WebhookEvent("evt_1")
	require.True(t, ok)
	assert.Nil(t, ev.ProcessedAt)
	assert.NotEmpty(t, ev.ProcessingError)
}

func TestPaymentFailedReleasesJob(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	outcome, err := f.deliver(t, "evt_fail", payment.EventPaymentFailed, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, payment.StatusFailed, f.paymentStatus(t, session).Status)
	assert.Equal(t, job.StatusDraft, f.jobStatus(t, j.ID).Status)

	// the customer retried on the same session and the charge went through
	outcome, err = f.deliver(t, "evt_ok", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, job.StatusInReview, f.jobStatus(t, j.ID).Status)
}

func TestLateFailureAfterSuccessIsIgnored(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	_, err := f.deliver(t, "evt_ok", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)

	outcome, err := f.deliver(t, "evt_fail", payment.EventPaymentFailed, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, payment.StatusSucceeded, f.paymentStatus(t, session).Status)
	assert.Equal(t, job.StatusInReview, f.jobStatus(t, j.ID).Status)
}

func TestRefundBeforeCompletionStillRefunds(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	outcome, err := f.deliver(t, "evt_ref", payment.EventChargeRefunded, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, payment.StatusRefunded, f.paymentStatus(t, session).Status)
	assert.Equal(t, job.StatusPaymentRefunded, f.jobStatus(t, j.ID).Status)

	// the delayed completion must not revive the listing
	outcome, err = f.deliver(t, "evt_ok", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = f.deliver(t, "evt_ref", payment.EventChargeRefunded, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.Equal(t, payment.StatusRefunded, f.paymentStatus(t, session).Status)
	got := f.jobStatus(t, j.ID)
	assert.Equal(t, job.StatusPaymentRefunded, got.Status)
	assert.False(t, got.IsPublic)
	assert.Equal(t, 1, f.notifier.count(notification.KindJobRefunded))
}

func TestRefundAfterFailureStillRefunds(t *testing.T) {
	f := newFixture(t)
	j, session := f.submitted(t)

	_, err := f.deliver(t, "evt_fail", payment.EventPaymentFailed, session)
	require.NoError(t, err)
	assert.Equal(t, job.StatusDraft, f.jobStatus(t, j.ID).Status)

	outcome, err := f.deliver(t, "evt_ref", payment.EventChargeRefunded, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, payment.StatusRefunded, f.paymentStatus(t, session).Status)
	assert.NotEqual(t, job.StatusActive, f.jobStatus(t, j.ID).Status)
	assert.False(t, f.jobStatus(t, j.ID).IsPublic)
}

func TestRefundFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j, session := f.submitted(t)

	_, err := f.deliver(t, "evt_ok", payment.EventCheckoutCompleted, session)
	require.NoError(t, err)
	_, err = f.jobs.Decide(ctx, f.admin, j.ID, jobs.Decision{Approve: true})
	require.NoError(t, err)

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleBusiness}
	_, err = f.svc.RequestRefund(ctx, stranger, j.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	rr, err := f.svc.RequestRefund(ctx, f.owner, j.ID, " filled internally ")
	require.NoError(t, err)
	assert.Equal(t, payment.RefundPending, rr.Status)
	assert.Equal(t, "filled internally", rr.Reason)
	assert.Equal(t, payment.StatusRefundRequested, f.paymentStatus(t, session).Status)

	_, err = f.svc.RequestRefund(ctx, f.owner, j.ID, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	outcome, err := f.deliver(t, "evt_ref", payment.EventChargeRefunded, session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	p := f.paymentStatus(t, session)
	assert.Equal(t, payment.StatusRefunded, p.Status)
	got := f.jobStatus(t, j.ID)
	assert.Equal(t, job.StatusPaymentRefunded, got.Status)
	assert.False(t, got.IsPublic)

	refunds := f.store.RefundRequests(p.ID)
	require.Len(t, refunds, 1)
	assert.Equal(t, payment.RefundApproved, refunds[0].Status)
	assert.NotNil(t, refunds[0].DecidedAt)
}

func TestRequestRefundNeedsSettledPayment(t *testing.T) {
	f := newFixture(t)
	j, _ := f.submitted(t)

	_, err := f.svc.RequestRefund(context.Background(), f.owner, j.ID, "changed my mind")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestVerifySession(t *testing.T) {
	t.Run("poll error leaves the ledger alone", func(t *testing.T) {
		f := newFixture(t)
		j, session := f.submitted(t)
		f.gw.PollErr = errors.New("timeout")

		p, err := f.svc.VerifySession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCreated, p.Status)
		assert.Equal(t, job.StatusPendingPayment, f.jobStatus(t, j.ID).Status)
	})

	t.Run("open session is not settled", func(t *testing.T) {
		f := newFixture(t)
		_, session := f.submitted(t)

		p, err := f.svc.VerifySession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCreated, p.Status)
	})

	t.Run("paid session settles", func(t *testing.T) {
		f := newFixture(t)
		j, session := f.submitted(t)
		f.gw.SetState(session, gateway.SessionStatus{State: payment.SessionPaid, PaymentIntentID: "pi_9"})

		p, err := f.svc.VerifySession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSucceeded, p.Status)
		assert.Equal(t, job.StatusInReview, f.jobStatus(t, j.ID).Status)
	})

	t.Run("expired session fails the payment", func(t *testing.T) {
		f := newFixture(t)
		j, session := f.submitted(t)
		f.gw.SetState(session, gateway.SessionStatus{State: payment.SessionExpired})

		p, err := f.svc.VerifySession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, p.Status)
		assert.Equal(t, job.StatusDraft, f.jobStatus(t, j.ID).Status)
	})

	t.Run("blank session id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.VerifySession(context.Background(), "  ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestVerifyForActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, session := f.submitted(t)

	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleBusiness}
	_, err := f.svc.VerifyForActor(ctx, stranger, session)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.VerifyForActor(ctx, f.owner, session)
	require.NoError(t, err)
	_, err = f.svc.VerifyForActor(ctx, f.admin, session)
	require.NoError(t, err)
}

func TestStaleSessions(t *testing.T) {
	f := newFixture(t)
	_, session := f.submitted(t)
	ctx := context.Background()

	stale, err := f.svc.StaleSessions(ctx, 15*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	stale, err = f.svc.StaleSessions(ctx, 15*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, session, stale[0].SessionID)
}
