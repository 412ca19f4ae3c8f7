package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/config"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/store"
)

func testApp(t *testing.T) (*App, *store.SQLiteRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	reg := prometheus.NewRegistry()
	a := &App{
		cfg: config.Config{
			TZCacheSize:  8,
			MisfireGrace: time.Minute,
			FireTimeout:  time.Second,
		},
		log:      zap.NewNop(),
		registry: reg,
		metrics:  metrics.MustNew(reg),
	}
	return a, repo
}

func TestHTTPHandler(t *testing.T) {
	a, repo := testApp(t)
	h := a.httpHandler(repo)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	a.metrics.SetJobsActive(2)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "todoprompt_scheduler_jobs_active 2")
}

func TestWire_ReconcileRestoresJobs(t *testing.T) {
	a, repo := testApp(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: 1, Timezone: "Europe/Moscow"}))
	require.NoError(t, repo.UpsertReminder(ctx, domain.ReminderRecord{UserID: 1, Kind: domain.KindAchievement, Hour: 9}))

	c := a.wire(repo)
	t.Cleanup(func() {
		sctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = c.engine.Stop(sctx)
	})

	rep, err := c.reminders.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Restored)

	_, ok := c.engine.Job("reminder:1:ACHIEVEMENT")
	assert.True(t, ok)
	jobs, err := repo.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
