package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/account"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/config"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/notify"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/reminder"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/scheduler"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/store"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/tasks"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/telegram"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/timezone"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg      config.Config
	log      *zap.Logger
	bot      *tgbotapi.BotAPI
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if cfg.RunMode != "polling" {
		return nil, fmt.Errorf("unsupported RUN_MODE %q", cfg.RunMode)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{cfg: cfg, log: log, bot: bot, registry: reg, metrics: metrics.MustNew(reg)}, nil
}

// components is everything built on top of an open store.
type components struct {
	engine    *scheduler.Engine
	reminders *reminder.Scheduler
	router    *telegram.Router
}

func (a *App) wire(repo store.Repo) components {
	zones := timezone.NewResolver(repo, a.log, a.cfg.TZCacheSize)
	taskSvc := tasks.NewService(repo, zones, a.log)
	tr := telegram.NewTransport(a.bot)
	dispatcher := notify.NewDispatcher(taskSvc, tr, a.log, a.metrics)

	engine := scheduler.New(repo, dispatcher, a.log,
		scheduler.WithMisfireGrace(a.cfg.MisfireGrace),
		scheduler.WithFireTimeout(a.cfg.FireTimeout),
		scheduler.WithMetrics(a.metrics),
		scheduler.WithLocator(zones.Location),
	)
	reminders := reminder.New(engine, repo, zones, a.log, a.metrics)
	accounts := account.NewService(repo, zones, reminders, a.log)

	return components{
		engine:    engine,
		reminders: reminders,
		router:    telegram.NewRouter(tr, a.log, taskSvc, reminders, accounts),
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting todoprompt",
		zap.String("mode", a.cfg.RunMode),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open SQLite and run migrations. Nothing is served without it.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	defer func() { _ = repo.Close() }()
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	c := a.wire(repo)
	if _, err := c.reminders.Reconcile(ctx); err != nil {
		a.log.Error("reconcile reminders failed", zap.Error(err))
		return err
	}
	c.engine.Start()

	httpSrv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      a.httpHandler(repo),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case upd, ok := <-updCh:
				if !ok {
					return nil
				}
				c.router.HandleUpdate(gctx, upd)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.bot.StopReceivingUpdates()
		if err := httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		if err := c.engine.Stop(shCtx); err != nil {
			a.log.Warn("job engine shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func (a *App) httpHandler(repo store.Repo) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}
