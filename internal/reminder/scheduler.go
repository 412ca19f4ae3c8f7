// Package reminder keeps each user's daily reminder records and the job
// engine's live jobs in agreement.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
)

// Engine is the job-execution surface the scheduler drives.
type Engine interface {
	AddRecurringJob(ctx context.Context, job domain.ScheduledJob) error
	CancelJob(ctx context.Context, id string) (bool, error)
	Job(id string) (domain.ScheduledJob, bool)
	PersistedJobs(ctx context.Context) ([]domain.ScheduledJob, error)
}

// Store is the slice of the repository used for reminder records.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpsertReminder(ctx context.Context, rec domain.ReminderRecord) error
	DeleteReminder(ctx context.Context, userID int64, kind domain.Kind) error
	ListReminders(ctx context.Context) ([]domain.ReminderRecord, error)
	ListUserReminders(ctx context.Context, userID int64) ([]domain.ReminderRecord, error)
}

// Locator loads zones and supplies the current instant.
type Locator interface {
	Location(name string) (*time.Location, error)
	Now() time.Time
}

// Result describes a scheduled reminder.
type Result struct {
	JobID  string
	FireAt time.Time // first fire instant, in the user's zone
	Record domain.ReminderRecord
}

// UnscheduleResult reports what an unschedule call found.
type UnscheduleResult struct {
	JobCancelled  bool
	RecordDeleted bool
	JobID         string
}

// ReconcileReport summarises a startup reconcile.
type ReconcileReport struct {
	Restored int
	Dropped  int
	Failed   int
}

// Scheduler creates, replaces and removes reminders.
type Scheduler struct {
	engine  Engine
	store   Store
	zones   Locator
	log     *zap.Logger
	metrics *metrics.Metrics
	locks   *keyLock
}

// New builds a Scheduler. m may be nil.
func New(engine Engine, store Store, zones Locator, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		engine:  engine,
		store:   store,
		zones:   zones,
		log:     log,
		metrics: m,
		locks:   newKeyLock(),
	}
}

// Schedule parses "HH:MM" and sets the user's daily reminder of the given kind,
// replacing any existing one.
func (s *Scheduler) Schedule(ctx context.Context, userID int64, kind domain.Kind, clock string) (Result, error) {
	h, m, err := domain.ParseClock(clock)
	if err != nil {
		s.metrics.ScheduleOp("schedule", "invalid")
		return Result{}, err
	}
	return s.ScheduleAt(ctx, userID, kind, h, m)
}

// ScheduleAt is Schedule with an already parsed time of day.
func (s *Scheduler) ScheduleAt(ctx context.Context, userID int64, kind domain.Kind, hour, minute int) (Result, error) {
	res, err := s.scheduleAt(ctx, userID, kind, hour, minute)
	if err != nil {
		s.metrics.ScheduleOp("schedule", "error")
		return res, err
	}
	s.metrics.ScheduleOp("schedule", "ok")
	return res, nil
}

func (s *Scheduler) scheduleAt(ctx context.Context, userID int64, kind domain.Kind, hour, minute int) (Result, error) {
	if !kind.Valid() {
		return Result{}, fmt.Errorf("%w: unknown reminder kind %q", domain.ErrInvalidInput, kind)
	}
	if err := domain.ValidateClock(hour, minute); err != nil {
		return Result{}, err
	}

	id := domain.JobID(userID, kind)
	unlock := s.locks.Lock(id)
	defer unlock()

	tz, loc, err := s.userZone(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	next := domain.NextDailyFire(s.zones.Now(), loc, hour, minute)
	job := domain.ScheduledJob{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Hour:      hour,
		Minute:    minute,
		Timezone:  tz,
		FirstFire: next.UTC(),
	}

	prev, hadPrev := s.engine.Job(id)
	if _, err := s.engine.CancelJob(ctx, id); err != nil {
		s.restore(ctx, prev, hadPrev)
		return Result{}, fmt.Errorf("replace %s: %w: %w", id, domain.ErrSchedulingFailed, err)
	}
	if err := s.engine.AddRecurringJob(ctx, job); err != nil {
		s.restore(ctx, prev, hadPrev)
		if !errors.Is(err, domain.ErrSchedulingFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrSchedulingFailed, err)
		}
		return Result{}, fmt.Errorf("schedule %s: %w", id, err)
	}

	rec := domain.ReminderRecord{
		UserID:        userID,
		Kind:          kind,
		Hour:          hour,
		Minute:        minute,
		NextFireLocal: domain.FormatLocal(next),
	}
	if err := s.store.UpsertReminder(ctx, rec); err != nil {
		if _, cerr := s.engine.CancelJob(ctx, id); cerr != nil {
			s.log.Error("rollback cancel failed", zap.String("job_id", id), zap.Error(cerr))
		}
		s.restore(ctx, prev, hadPrev)
		return Result{}, domain.Storage("save reminder "+id, err)
	}

	s.log.Info("reminder scheduled",
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("at", domain.FormatClock(hour, minute)),
		zap.String("tz", tz),
		zap.Time("next_fire", next),
	)
	return Result{JobID: id, FireAt: next, Record: rec}, nil
}

// restore re-registers the job that was live before a failed replace. A job
// that is still registered is left alone.
func (s *Scheduler) restore(ctx context.Context, prev domain.ScheduledJob, ok bool) {
	if !ok {
		return
	}
	if _, live := s.engine.Job(prev.ID); live {
		return
	}
	// Recompute from now so the restore never counts as a missed trigger.
	prev.FirstFire = time.Time{}
	if err := s.engine.AddRecurringJob(ctx, prev); err != nil {
		s.log.Error("restore previous job failed", zap.String("job_id", prev.ID), zap.Error(err))
	}
}

// Unschedule removes the user's reminder of the given kind. Removing a
// reminder that was never set is not an error.
func (s *Scheduler) Unschedule(ctx context.Context, userID int64, kind domain.Kind) (UnscheduleResult, error) {
	id := domain.JobID(userID, kind)
	res := UnscheduleResult{JobID: id}
	if !kind.Valid() {
		return res, fmt.Errorf("%w: unknown reminder kind %q", domain.ErrInvalidInput, kind)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	cancelled, err := s.engine.CancelJob(ctx, id)
	res.JobCancelled = cancelled
	if err != nil {
		s.metrics.ScheduleOp("unschedule", "error")
		return res, fmt.Errorf("unschedule %s: %w: %w", id, domain.ErrSchedulingFailed, err)
	}

	switch err := s.store.DeleteReminder(ctx, userID, kind); {
	case err == nil:
		res.RecordDeleted = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		s.metrics.ScheduleOp("unschedule", "error")
		return res, domain.Storage("delete reminder "+id, err)
	}

	s.metrics.ScheduleOp("unschedule", "ok")
	s.log.Info("reminder unscheduled",
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Bool("job_cancelled", res.JobCancelled),
		zap.Bool("record_deleted", res.RecordDeleted),
	)
	return res, nil
}

// Reschedule re-registers every reminder of a user, e.g. after a timezone change.
func (s *Scheduler) Reschedule(ctx context.Context, userID int64) error {
	recs, err := s.store.ListUserReminders(ctx, userID)
	if err != nil {
		return domain.Storage("list reminders", err)
	}
	var errs []error
	for _, rec := range recs {
		if _, err := s.ScheduleAt(ctx, userID, rec.Kind, rec.Hour, rec.Minute); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DropUser cancels every live job of a user and then runs purge, holding the
// locks of all the user's keys throughout so no schedule lands in between.
// purge is skipped when a cancel fails. A nil purge only cancels.
func (s *Scheduler) DropUser(ctx context.Context, userID int64, purge func(context.Context) error) error {
	for _, kind := range domain.Kinds {
		unlock := s.locks.Lock(domain.JobID(userID, kind))
		defer unlock()
	}

	var errs []error
	for _, kind := range domain.Kinds {
		id := domain.JobID(userID, kind)
		if _, err := s.engine.CancelJob(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("cancel %s: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrSchedulingFailed, errors.Join(errs...))
	}
	if purge == nil {
		return nil
	}
	return purge(ctx)
}

// Reconcile rebuilds live jobs from the reminder records at startup. Records
// are authoritative: jobs without a record are dropped, and a persisted job
// that still matches its record keeps its fire history so a trigger missed
// during downtime can be caught up.
func (s *Scheduler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport

	recs, err := s.store.ListReminders(ctx)
	if err != nil {
		s.metrics.ScheduleOp("reconcile", "error")
		return rep, domain.Storage("list reminders", err)
	}
	persisted, err := s.engine.PersistedJobs(ctx)
	if err != nil {
		s.metrics.ScheduleOp("reconcile", "error")
		return rep, domain.Storage("list jobs", err)
	}
	byID := make(map[string]domain.ScheduledJob, len(persisted))
	for _, j := range persisted {
		byID[j.ID] = j
	}

	for _, rec := range recs {
		id := domain.JobID(rec.UserID, rec.Kind)
		old, hadOld := byID[id]
		delete(byID, id)

		if err := s.restoreRecord(ctx, rec, old, hadOld); err != nil {
			rep.Failed++
			if hadOld {
				if _, cerr := s.engine.CancelJob(ctx, id); cerr != nil {
					s.log.Warn("drop stale job failed", zap.String("job_id", id), zap.Error(cerr))
				}
			}
			s.log.Warn("reminder not restored",
				zap.String("job_id", id),
				zap.Error(err),
			)
			continue
		}
		rep.Restored++
	}

	for id := range byID {
		if _, err := s.engine.CancelJob(ctx, id); err != nil {
			s.log.Warn("drop orphan job failed", zap.String("job_id", id), zap.Error(err))
			continue
		}
		rep.Dropped++
	}

	s.metrics.ScheduleOp("reconcile", "ok")
	s.log.Info("reminders reconciled",
		zap.Int("restored", rep.Restored),
		zap.Int("dropped", rep.Dropped),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (s *Scheduler) restoreRecord(ctx context.Context, rec domain.ReminderRecord, old domain.ScheduledJob, hadOld bool) error {
	id := domain.JobID(rec.UserID, rec.Kind)
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, live := s.engine.Job(id); live {
		return nil
	}
	tz, _, err := s.userZone(ctx, rec.UserID)
	if err != nil {
		return err
	}
	job := domain.ScheduledJob{
		ID:       id,
		UserID:   rec.UserID,
		Kind:     rec.Kind,
		Hour:     rec.Hour,
		Minute:   rec.Minute,
		Timezone: tz,
	}
	if hadOld && old.Hour == job.Hour && old.Minute == job.Minute && old.Timezone == job.Timezone {
		job.FirstFire = old.FirstFire
		job.LastFired = old.LastFired
	}
	return s.engine.AddRecurringJob(ctx, job)
}

func (s *Scheduler) userZone(ctx context.Context, userID int64) (string, *time.Location, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("user %d: %w", userID, domain.ErrNoTimezone)
		}
		return "", nil, domain.Storage("get user", err)
	}
	if !u.HasTimezone() {
		return "", nil, fmt.Errorf("user %d: %w", userID, domain.ErrNoTimezone)
	}
	loc, err := s.zones.Location(u.Timezone)
	if err != nil {
		return "", nil, fmt.Errorf("user %d: %w: %w", userID, domain.ErrNoTimezone, err)
	}
	return u.Timezone, loc, nil
}
