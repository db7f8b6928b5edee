package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/domain"
	"hirelane/internal/domain/application"
	"hirelane/internal/domain/job"
	"hirelane/internal/domain/notification"
	"hirelane/internal/infrastructure/objectstore"
	"hirelane/internal/metrics"
	"hirelane/internal/repository"
)

// advanceAttempts bounds how often AdvanceForOffer re-reads after losing a
// version race.
const advanceAttempts = 3

type notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]notification.Notification, error)
}

type Deps struct {
	Applications repository.ApplicationRepository
	Jobs         repository.JobRepository
	Uploader     objectstore.Uploader
	Notifier     notifier
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

type Service struct {
	apps     repository.ApplicationRepository
	jobs     repository.JobRepository
	uploader objectstore.Uploader
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
		apps:     d.Applications,
		jobs:     d.Jobs,
		uploader: d.Uploader,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}
}

type Resume struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitInput struct {
	CoverLetter string
	Resume      *Resume
}

func (s *Service) Submit(ctx context.Context, actor domain.Actor, jobID uuid.UUID, in SubmitInput) (application.Application, error) {
	if actor.Role != domain.RoleTalent {
		return application.Application{}, fmt.Errorf("%w: only talents apply", domain.ErrForbidden)
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return application.Application{}, err
	}
	if j.Status != job.StatusActive || !j.IsPublic {
		return application.Application{}, fmt.Errorf("apply to job %s in %s: %w", jobID, j.Status, domain.ErrInvalidState)
	}

	appID := uuid.New()
	var resumeURL *string
	if in.Resume != nil {
		if err := objectstore.ValidateResume(in.Resume.ContentType, in.Resume.Data); err != nil {
			return application.Application{}, err
		}
		if s.uploader == nil {
			return application.Application{}, errors.New("submit application: no object storage configured")
		}
		name := fmt.Sprintf("resumes/%s/%s.pdf", jobID, appID)
		url, err := s.uploader.Upload(ctx, name, objectstore.ResumeContentType, in.Resume.Data)
		if err != nil {
			return application.Application{}, fmt.Errorf("upload resume: %w", err)
		}
		resumeURL = &url
	}

	now := s.now().UTC()
	app := application.Application{
		ID:             appID,
		JobID:          jobID,
		TalentID:       actor.ID,
		Status:         application.StatusNew,
		Version:        1,
		CoverLetter:    strings.TrimSpace(in.CoverLetter),
		ResumeURL:      resumeURL,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	first := application.HistoryEntry{
		ID:            uuid.New(),
		ApplicationID: appID,
		NewStatus:     application.StatusNew,
		ActorID:       actor.Ref(),
		CreatedAt:     now,
	}
	if err := s.apps.Create(ctx, app, first); err != nil {
		return application.Application{}, fmt.Errorf("submit application: %w", err)
	}

	s.metrics.RecordTransition("application", string(application.StatusNew))
	s.logger.Info("application submitted",
		zap.Stringer("application_id", appID),
		zap.Stringer("job_id", jobID),
		zap.Stringer("talent_id", actor.ID),
	)
	s.notify(ctx, notification.Event{
		Kind:    notification.KindApplicationNew,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{actor.ID, j.OwnerID},
		Title:   "New application",
		Message: fmt.Sprintf("A talent applied to %q.", j.Title),
		Data:    map[string]string{"application_id": appID.String(), "job_id": jobID.String()},
	})
	return app, nil
}

// UpdateStatus moves an application for the job owner or an admin. The
// caller must present the version it last read.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, expectedVersion int, to application.Status, notes string) (application.Application, error) {
	if !to.Valid() {
		return application.Application{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, to)
	}
	app, owner, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}
	if !canMove(actor, app, owner, to) {
		return application.Application{}, fmt.Errorf("%w: not allowed to move this application to %s", domain.ErrForbidden, to)
	}
	if app.Version != expectedVersion {
		s.metrics.RecordLockConflict()
		return application.Application{}, fmt.Errorf("application %s version %d: %w", id, expectedVersion, domain.ErrOptimisticLock)
	}
	return s.transition(ctx, actor, app, owner, to, notes)
}

// canMove lets the job owner and admins drive the pipeline. The applicant may
// only withdraw, which moves the application to rejected.
func canMove(actor domain.Actor, app application.Application, owner uuid.UUID, to application.Status) bool {
	switch {
	case actor.IsSystem():
		return false
	case actor.IsAdmin(), actor.ID == owner:
		return true
	default:
		return actor.ID == app.TalentID && to == application.StatusRejected
	}
}

// AdvanceForOffer feeds an offer decision into the pipeline. It reads the
// current version itself and retries a lost race a bounded number of times.
// Already being at or past target is success without a write.
func (s *Service) AdvanceForOffer(ctx context.Context, actor domain.Actor, id uuid.UUID, target application.Status) (application.Application, bool, error) {
	var lastErr error
	for attempt := 0; attempt < advanceAttempts; attempt++ {
		app, owner, err := s.load(ctx, id)
		if err != nil {
			return application.Application{}, false, err
		}
		if application.Reached(app.Status, target) {
			return app, false, nil
		}
		if !application.CanTransition(app.Status, target) {
			return app, false, fmt.Errorf("application %s %s -> %s: %w", id, app.Status, target, domain.ErrInvalidTransition)
		}

		updated, err := s.transition(ctx, actor, app, owner, target, "")
		if err == nil {
			return updated, true, nil
		}
		if !errors.Is(err, domain.ErrOptimisticLock) {
			return application.Application{}, false, err
		}
		lastErr = err
		s.logger.Info("offer feedback lost version race, retrying",
			zap.Stringer("application_id", id), zap.Int("attempt", attempt+1))
	}
	return application.Application{}, false, lastErr
}

func (s *Service) transition(ctx context.Context, actor domain.Actor, app application.Application, owner uuid.UUID, to application.Status, notes string) (application.Application, error) {
	if !application.CanTransition(app.Status, to) {
		return application.Application{}, fmt.Errorf("application %s %s -> %s: %w", app.ID, app.Status, to, domain.ErrInvalidTransition)
	}

	old := app.Status
	entry := application.HistoryEntry{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		OldStatus:     &old,
		NewStatus:     to,
		ActorID:       actor.Ref(),
		Notes:         strings.TrimSpace(notes),
		CreatedAt:     s.now().UTC(),
	}
	updated, err := s.apps.UpdateStatus(ctx, app.ID, app.Version, entry)
	if err != nil {
		if errors.Is(err, domain.ErrOptimisticLock) {
			s.metrics.RecordLockConflict()
		}
		return application.Application{}, err
	}

	s.metrics.RecordTransition("application", string(to))
	s.logger.Info("application transition",
		zap.Stringer("application_id", app.ID),
		zap.String("from", string(old)),
		zap.String("to", string(to)),
		zap.Int("version", updated.Version),
	)
	s.notify(ctx, notification.Event{
		Kind:    notification.KindApplicationStatus,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{app.TalentID, owner},
		Title:   "Application updated",
		Message: fmt.Sprintf("Application moved from %s to %s.", old, to),
		Data: map[string]string{
			"application_id": app.ID.String(),
			"job_id":         app.JobID.String(),
			"old_status":     string(old),
			"new_status":     string(to),
		},
	})
	return updated, nil
}

// SoftDelete hides the application; its history stays.
func (s *Service) SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	app, owner, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && (actor.IsSystem() || app.TalentID != actor.ID) {
		return fmt.Errorf("%w: only the applicant deletes an application", domain.ErrForbidden)
	}
	if err := s.apps.SoftDelete(ctx, id, actor.ID, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("application deleted", zap.Stringer("application_id", id), zap.Stringer("actor_id", actor.ID))
	s.notify(ctx, notification.Event{
		Kind:    notification.KindApplicationDeleted,
		ActorID: actor.Ref(),
		Parties: []uuid.UUID{app.TalentID, owner},
		Title:   "Application withdrawn",
		Message: "An application was withdrawn.",
		Data:    map[string]string{"application_id": id.String(), "job_id": app.JobID.String()},
	})
	return nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (application.Application, error) {
	app, owner, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}
	if err := authorizeParty(actor, app, owner); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

// Parties returns the applicant and the job owner, after checking that the
// actor is one of them or an admin.
func (s *Service) Parties(ctx context.Context, actor domain.Actor, id uuid.UUID) (application.Application, uuid.UUID, error) {
	app, owner, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, uuid.Nil, err
	}
	if err := authorizeParty(actor, app, owner); err != nil {
		return application.Application{}, uuid.Nil, err
	}
	return app, owner, nil
}

func (s *Service) ListForJob(ctx context.Context, actor domain.Actor, jobID uuid.UUID, limit, offset int) ([]application.Application, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (actor.IsSystem() || j.OwnerID != actor.ID) {
		return nil, fmt.Errorf("%w: not the job owner", domain.ErrForbidden)
	}
	return s.apps.ListByJob(ctx, jobID, limit, offset)
}

func (s *Service) ListMine(ctx context.Context, actor domain.Actor, limit, offset int) ([]application.Application, error) {
	if actor.Role != domain.RoleTalent {
		return nil, fmt.Errorf("%w: talents only", domain.ErrForbidden)
	}
	return s.apps.ListByTalent(ctx, actor.ID, limit, offset)
}

func (s *Service) History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]application.HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.apps.ListHistory(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (application.Application, uuid.UUID, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return application.Application{}, uuid.Nil, err
	}
	j, err := s.jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return application.Application{}, uuid.Nil, fmt.Errorf("application %s job: %w", id, err)
	}
	return app, j.OwnerID, nil
}

func authorizeParty(actor domain.Actor, app application.Application, owner uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsSystem() && (actor.ID == app.TalentID || actor.ID == owner) {
		return nil
	}
	return fmt.Errorf("%w: not a party to application %s", domain.ErrForbidden, app.ID)
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(ctx, ev); err != nil {
		s.logger.Error("application notification failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
