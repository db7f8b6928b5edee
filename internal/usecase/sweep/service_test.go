package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/offer"
	"hirelane/internal/domain/payment"
	"hirelane/internal/repository/memory"
	"hirelane/internal/usecase/applications"
)

type stubVerifier struct {
	mu      sync.Mutex
	stale   []payment.Payment
	settles map[string]payment.Status
	errs    map[string]error
	polled  []string
}

func (v *stubVerifier) StaleSessions(context.Context, time.Duration, int) ([]payment.Payment, error) {
	return v.stale, nil
}

func (v *stubVerifier) VerifySession(_ context.Context, sessionID string) (payment.Payment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.polled = append(v.polled, sessionID)
	if err := v.errs[sessionID]; err != nil {
		return payment.Payment{}, err
	}
	st, ok := v.settles[sessionID]
	if !ok {
		st = payment.StatusCreated
	}
	return payment.Payment{SessionID: sessionID, Status: st}, nil
}

type denyLocker struct{}

func (denyLocker) SetIfNotExists(context.Context, string, string, time.Duration) (bool, error) {
	return false, nil
}

type setup struct {
	store *memory.Store
	apps  *applications.Service
	app   application.Application
}

func newSetup(t *testing.T) setup {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	owner := uuid.New()
	j := job.Job{ID: uuid.New(), OwnerID: owner, Title: "QA", Status: job.StatusDraft, CreatedAt: time.Now()}
	require.NoError(t, store.Jobs().Create(ctx, j))
	_, ok, err := store.Jobs().CompareAndSet(ctx, j.ID, []job.Status{job.StatusDraft},
		job.Update{To: job.StatusActive, At: time.Now()})
	require.NoError(t, err)
	require.True(t, ok)

	apps := applications.NewService(applications.Deps{Applications: store.Applications(), Jobs: store.Jobs()})
	app, err := apps.Submit(ctx, domain.Actor{ID: uuid.New(), Role: domain.RoleTalent}, j.ID, applications.SubmitInput{})
	require.NoError(t, err)
	return setup{store: store, apps: apps, app: app}
}

func TestRunOnceRepairsLaggingApplication(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	// the offer write landed but the application feedback did not
	require.NoError(t, s.store.Offers().Create(ctx, offer.Offer{
		ID:            uuid.New(),
		ApplicationID: s.app.ID,
		CreatedBy:     uuid.New(),
		PositionTitle: "QA",
		Status:        offer.StatusAccepted,
		CreatedAt:     time.Now(),
	}))

	svc := NewService(Deps{Offers: s.store.Offers(), Pipeline: s.apps}, Config{})
	rep, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.OffersChecked)
	assert.Equal(t, 1, rep.OffersRepaired)
	assert.Empty(t, rep.Skipped)

	app, err := s.store.Applications().GetByID(ctx, s.app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusOfferAccepted, app.Status)

	history, err := s.store.Applications().ListHistory(ctx, s.app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[1].ActorID)

	rep, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.OffersChecked)
}

func TestRunOnceVerifiesStalePayments(t *testing.T) {
	v := &stubVerifier{
		stale: []payment.Payment{
			{SessionID: "cs_paid"},
			{SessionID: "cs_open"},
			{SessionID: "cs_err"},
		},
		settles: map[string]payment.Status{"cs_paid": payment.StatusSucceeded},
		errs:    map[string]error{"cs_err": errors.New("gateway down")},
	}
	svc := NewService(Deps{Payments: v}, Config{Workers: 2})

	rep, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, rep.PaymentsChecked)
	assert.Equal(t, 1, rep.PaymentsSettled)
	assert.ElementsMatch(t, []string{"cs_paid", "cs_open", "cs_err"}, v.polled)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	s := newSetup(t)
	v := &stubVerifier{stale: []payment.Payment{{SessionID: "cs_1"}}}
	svc := NewService(Deps{
		Offers:   s.store.Offers(),
		Pipeline: s.apps,
		Payments: v,
		Locker:   denyLocker{},
	}, Config{})

	rep, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"offers", "payments"}, rep.Skipped)
	assert.Empty(t, v.polled)
}

func TestLaggingBehind(t *testing.T) {
	assert.ElementsMatch(t, []application.Status{
		application.StatusNew,
		application.StatusReviewing,
		application.StatusInterview,
		application.StatusInterviewScheduled,
		application.StatusOffer,
	}, laggingBehind(application.StatusOfferPending))

	assert.NotContains(t, laggingBehind(application.StatusOfferAccepted), application.StatusOfferDeclined)
	assert.Contains(t, laggingBehind(application.StatusOfferAccepted), application.StatusOfferPending)
}
