package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RiskPulse/internal/realtime"
	"RiskPulse/internal/scheduler"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/errtrack"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/postgres"
)

// Components are the long-lived pieces the App starts and stops.
// Consumer, Producer, Cache and Postgres may be nil.
type Components struct {
	Logger     *applogger.Logger
	Tracker    errtrack.Tracker
	HTTP       *xhttp.Server
	Scheduler  *scheduler.Scheduler
	Consumer   *pkgkafka.Consumer
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
	Cache      io.Closer
	Postgres   *postgres.Client
	Hub        *realtime.Hub
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	c   Components
	l   *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, c Components) *App {
	l := c.Logger
	if l == nil {
		l = applogger.Nop()
	}
	if c.Tracker == nil {
		c.Tracker = errtrack.Nop()
	}
	return &App{cfg: cfg, c: c, l: l}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			a.shutdown(ctx)
			return err
		}
		a.l.Info("kafka consumer started", applogger.Strings("topics", a.c.Consumer.Topics()))
	}

	if err := a.c.Scheduler.Start(ctx); err != nil {
		a.l.Error("scheduler start error", applogger.Error(err))
		a.shutdown(ctx)
		return err
	}

	if err := a.c.HTTP.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		a.shutdown(ctx)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.l.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case runErr = <-a.c.HTTP.Errors():
		a.l.Error("http server failed", applogger.Error(runErr))
		a.c.Tracker.CaptureError(ctx, runErr, map[string]string{"component": "http"})
	}

	a.shutdown(ctx)
	return runErr
}

// shutdown stops producers of work before the clients they depend on.
func (a *App) shutdown(ctx context.Context) {
	a.l.Info("shutting down...")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.c.Scheduler.Stop(stopCtx); err != nil {
		a.l.Warn("scheduler stop error", applogger.Error(err))
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(stopCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.c.HTTP.Stop(stopCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.c.Hub != nil {
		a.c.Hub.Close()
	}

	if !a.c.Tracker.Flush(2 * time.Second) {
		a.l.Warn("error tracker flush timed out")
	}
	// flushes pending aggregated logs before the producer goes away
	a.l.RemoveCollector()

	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Cache != nil {
		if err := a.c.Cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.c.Postgres != nil {
		if err := a.c.Postgres.Close(); err != nil {
			a.l.Warn("postgres close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}
