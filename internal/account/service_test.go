package account

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/reminder"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/scheduler"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/store"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/timezone"
)

var fixedNow = time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC)

type stack struct {
	repo   *store.SQLiteRepo
	engine *scheduler.Engine
	sched  *reminder.Scheduler
	svc    *Service
}

func setup(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	clock := func() time.Time { return fixedNow }

	repo, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "account.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	zones := timezone.NewResolver(repo, log, 16, timezone.WithClock(clock))
	engine := scheduler.New(repo, scheduler.HandlerFunc(func(context.Context, int64, domain.Kind) {}), log,
		scheduler.WithClock(clock),
		scheduler.WithLocator(zones.Location),
	)
	t.Cleanup(func() {
		sctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = engine.Stop(sctx)
	})
	sched := reminder.New(engine, repo, zones, log, nil)

	return &stack{
		repo:   repo,
		engine: engine,
		sched:  sched,
		svc:    NewService(repo, zones, sched, log),
	}
}

func TestRegister(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	ok, err := s.svc.Registered(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.svc.Register(ctx, 1, "Mars/Olympus")
	require.ErrorIs(t, err, domain.ErrInvalidTimezone)

	u, err := s.svc.Register(ctx, 1, "Europe/Moscow")
	require.NoError(t, err)
	assert.Equal(t, "UTC+03:00", u.UTCOffset)

	ok, err = s.svc.Registered(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_MovesRemindersToNewZone(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.svc.Register(ctx, 1, "UTC")
	require.NoError(t, err)
	_, err = s.sched.Schedule(ctx, 1, domain.KindAchievement, "09:00")
	require.NoError(t, err)

	_, err = s.svc.Register(ctx, 1, "Asia/Tokyo")
	require.NoError(t, err)

	job, ok := s.engine.Job("reminder:1:ACHIEVEMENT")
	require.True(t, ok)
	assert.Equal(t, "Asia/Tokyo", job.Timezone)
	// 06:30 UTC is 15:30 in Tokyo; next 09:00 JST is 00:00 UTC on June 2nd.
	assert.True(t, job.FirstFire.Equal(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))

	rec, err := s.repo.GetReminder(ctx, 1, domain.KindAchievement)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02 09:00:00", rec.NextFireLocal)
}

func TestProfile(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.svc.Profile(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.svc.Register(ctx, 1, "UTC")
	require.NoError(t, err)
	require.NoError(t, s.repo.SetUserOffset(ctx, 1, "UTC+05:00"))

	for _, task := range []domain.Task{
		{UserID: 1, Content: "a", Priority: 1, CreatedAt: "2024-06-01 06:00:00", Done: true},
		{UserID: 1, Content: "b", Priority: 2, CreatedAt: "2024-06-01 06:10:00"},
		{UserID: 1, Content: "c", Priority: 3, CreatedAt: "2024-05-30 12:00:00", Done: true},
	} {
		task := task
		require.NoError(t, s.repo.InsertTask(ctx, &task))
	}
	_, err = s.sched.Schedule(ctx, 1, domain.KindLastCall, "21:30")
	require.NoError(t, err)

	p, err := s.svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "UTC+00:00", p.UTCOffset)
	assert.Equal(t, domain.TaskStats{Logged: 3, Done: 2, Left: 1, Today: 2, TodayDone: 1}, p.Stats)
	assert.Equal(t, map[domain.Kind]string{domain.KindLastCall: "21:30"}, p.Reminders)

	u, err := s.repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "UTC+00:00", u.UTCOffset)
}

func TestDelete_Cascades(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.svc.Register(ctx, 1, "UTC")
	require.NoError(t, err)
	_, err = s.svc.Register(ctx, 2, "UTC")
	require.NoError(t, err)
	for _, uid := range []int64{1, 2} {
		for _, k := range domain.Kinds {
			_, err := s.sched.Schedule(ctx, uid, k, "10:00")
			require.NoError(t, err)
		}
	}
	task := domain.Task{UserID: 1, Content: "x", Priority: 1, CreatedAt: "2024-06-01 06:00:00"}
	require.NoError(t, s.repo.InsertTask(ctx, &task))

	require.NoError(t, s.svc.Delete(ctx, 1))

	_, err = s.repo.GetUser(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	recs, err := s.repo.ListUserReminders(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
	for _, k := range domain.Kinds {
		_, ok := s.engine.Job(domain.JobID(1, k))
		assert.False(t, ok)
	}
	jobs, err := s.repo.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, 2, s.engine.Len())

	err = s.svc.Delete(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
