// Package scheduler is the job-execution engine: it fires recurring daily
// triggers through robfig/cron and persists their descriptors so they can be
// rebuilt after a restart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
)

// Handler is invoked at fire time with the job's payload only. It runs without
// any request context and must not panic.
type Handler interface {
	Fire(ctx context.Context, userID int64, kind domain.Kind)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, userID int64, kind domain.Kind)

// Fire calls f.
func (f HandlerFunc) Fire(ctx context.Context, userID int64, kind domain.Kind) { f(ctx, userID, kind) }

// JobStore is the engine's own durable descriptor table.
type JobStore interface {
	SaveJob(ctx context.Context, job domain.ScheduledJob) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context) ([]domain.ScheduledJob, error)
	MarkJobFired(ctx context.Context, id string, at time.Time) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	ID   string
	Next time.Time
}

var ErrDuplicateJob = errors.New("job already registered")

type registered struct {
	entry    cron.EntryID
	job      domain.ScheduledJob
	schedule domain.DailySchedule
}

// Engine wraps a cron runner. At most one job per id is registered at a time.
type Engine struct {
	cron        *cron.Cron
	store       JobStore
	handler     Handler
	log         *zap.Logger
	metrics     *metrics.Metrics
	locate      func(name string) (*time.Location, error)
	grace       time.Duration
	fireTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]registered

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customises an Engine.
type Option func(*Engine)

// WithMisfireGrace lets a trigger missed by at most d fire once when it is re-registered.
func WithMisfireGrace(d time.Duration) Option { return func(e *Engine) { e.grace = d } }

// WithFireTimeout bounds a single handler invocation.
func WithFireTimeout(d time.Duration) Option { return func(e *Engine) { e.fireTimeout = d } }

// WithMetrics reports the active job count.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithLocator overrides zone loading (the app passes its cached resolver).
func WithLocator(fn func(name string) (*time.Location, error)) Option {
	return func(e *Engine) { e.locate = fn }
}

// WithClock overrides the time source used for misfire checks.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New creates an engine. Call Start to begin firing.
func New(store JobStore, handler Handler, log *zap.Logger, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:       store,
		handler:     handler,
		log:         log,
		locate:      time.LoadLocation,
		grace:       time.Minute,
		fireTimeout: 15 * time.Second,
		now:         time.Now,
		entries:     make(map[string]registered),
		baseCtx:     ctx,
		cancel:      cancel,
	}
	for _, o := range opts {
		o(e)
	}
	cl := cronLogger{log: log.Sugar()}
	e.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	return e
}

// Start begins firing registered jobs.
func (e *Engine) Start() {
	e.cron.Start()
	e.log.Info("job engine started", zap.Int("jobs", e.Len()))
}

// Stop halts the runner and waits for in-flight jobs or ctx expiry.
func (e *Engine) Stop(ctx context.Context) error {
	stopped := e.cron.Stop()
	e.cancel()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.log.Info("job engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddRecurringJob persists and registers a daily job. A zero FirstFire is
// filled with the next local occurrence. Registering an id that is already
// present fails; callers replace by cancelling first.
func (e *Engine) AddRecurringJob(ctx context.Context, job domain.ScheduledJob) error {
	if job.ID == "" || !job.Kind.Valid() {
		return fmt.Errorf("%w: malformed job %+v", domain.ErrSchedulingFailed, job)
	}
	if err := domain.ValidateClock(job.Hour, job.Minute); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSchedulingFailed, err)
	}
	loc, err := e.locate(job.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %w", domain.ErrSchedulingFailed, job.Timezone, err)
	}
	if job.FirstFire.IsZero() {
		job.FirstFire = domain.NextDailyFire(e.now(), loc, job.Hour, job.Minute)
	}
	job.FirstFire = job.FirstFire.UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.entries[job.ID]; ok {
		return fmt.Errorf("%w: %w: %s", domain.ErrSchedulingFailed, ErrDuplicateJob, job.ID)
	}
	if err := e.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("%w: persist %s: %w", domain.ErrSchedulingFailed, job.ID, err)
	}

	sched := domain.DailySchedule{Hour: job.Hour, Minute: job.Minute, Location: loc, NotBefore: job.FirstFire}
	id := job.ID
	entry := e.cron.Schedule(sched, cron.FuncJob(func() { e.fire(id) }))
	e.entries[id] = registered{entry: entry, job: job, schedule: sched}
	e.metrics.SetJobsActive(len(e.entries))

	e.log.Debug("job registered",
		zap.String("job_id", id),
		zap.Time("first_fire", job.FirstFire),
		zap.String("tz", job.Timezone),
	)
	e.maybeFireMissed(job, loc)
	return nil
}

// CancelJob drops a job's descriptor and unregisters it. It reports whether a
// live job was found; an unknown id is not an error. When the descriptor
// cannot be deleted the live job stays registered.
func (e *Engine) CancelJob(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.DeleteJob(ctx, id); err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	reg, ok := e.entries[id]
	if ok {
		e.cron.Remove(reg.entry)
		delete(e.entries, id)
		e.metrics.SetJobsActive(len(e.entries))
	}
	return ok, nil
}

// Job returns the descriptor of a registered job.
func (e *Engine) Job(id string) (domain.ScheduledJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	reg, ok := e.entries[id]
	return reg.job, ok
}

// ListJobs returns every registered job with its next fire instant, sorted by id.
func (e *Engine) ListJobs() []JobInfo {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	res := make([]JobInfo, 0, len(e.entries))
	for id, reg := range e.entries {
		next := e.cron.Entry(reg.entry).Next
		if next.IsZero() {
			// Runner not started yet.
			next = reg.schedule.Next(now)
		}
		res = append(res, JobInfo{ID: id, Next: next})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of registered jobs.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// PersistedJobs reads the engine's durable descriptors.
func (e *Engine) PersistedJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	return e.store.ListJobs(ctx)
}

// maybeFireMissed fires once when the latest occurrence was missed (process
// down) by no more than the grace window. Caller holds e.mu.
func (e *Engine) maybeFireMissed(job domain.ScheduledJob, loc *time.Location) {
	if e.grace <= 0 {
		return
	}
	now := e.now()
	prev := domain.PrevDailyFire(now, loc, job.Hour, job.Minute)
	if prev.Before(job.FirstFire) || !prev.After(job.LastFired) || now.Sub(prev) > e.grace {
		return
	}
	e.log.Info("firing missed trigger",
		zap.String("job_id", job.ID),
		zap.Time("missed_at", prev),
	)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("missed trigger panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			}
		}()
		e.fire(job.ID)
	}()
}

// fire runs the handler for a registered job and records the activation.
func (e *Engine) fire(id string) {
	e.mu.Lock()
	reg, ok := e.entries[id]
	e.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(e.baseCtx, e.fireTimeout)
	defer cancel()

	firedAt := e.now().UTC()
	e.handler.Fire(ctx, reg.job.UserID, reg.job.Kind)

	if err := e.store.MarkJobFired(ctx, id, firedAt); err != nil {
		e.log.Warn("mark job fired failed", zap.String("job_id", id), zap.Error(err))
	}
	e.mu.Lock()
	if cur, ok := e.entries[id]; ok && cur.entry == reg.entry {
		cur.job.LastFired = firedAt
		e.entries[id] = cur
	}
	e.mu.Unlock()
}

// cronLogger routes robfig/cron logs to zap.
type cronLogger struct{ log *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
