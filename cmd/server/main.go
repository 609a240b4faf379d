package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/auth"
	"github.com/kentra/backoffice/internal/bot"
	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/events"
	"github.com/kentra/backoffice/internal/handlers"
	"github.com/kentra/backoffice/internal/logger"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
	"github.com/kentra/backoffice/internal/web"
)

func main() {
	cfg, err := config.Load(os.Getenv("BACKOFFICE_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if err := db.Init(cfg.Database, zl); err != nil {
		zl.Fatal("db init", zap.Error(err))
	}
	if err := db.SeedUsers(db.Conn(), cfg.Auth.AdminPassword, cfg.Auth.DemoPassword); err != nil {
		zl.Fatal("seed users", zap.Error(err))
	}
	if err := db.SeedServices(db.Conn(), db.DefaultServices); err != nil {
		zl.Fatal("seed services", zap.Error(err))
	}

	rest, _ := cfg.Schedule.RestWeekdays() // checked by Validate
	loc := cfg.Schedule.Location()
	centers := services.NewCenters(cfg.Centers)

	scheduler := services.NewScheduler(db.Conn(), services.SchedulerConfig{
		Rules:           services.WalkRules{IntervalDays: cfg.Schedule.IntervalDays, RestDays: rest},
		DefaultStart:    cfg.Schedule.DefaultStart,
		DefaultDuration: cfg.Schedule.DefaultDuration,
	}, zl)

	app := handlers.NewApp(handlers.App{
		Log:              zl,
		Sessions:         auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		Scheduler:        scheduler,
		Centers:          centers,
		Loc:              loc,
		ExpiryWindowDays: cfg.Schedule.ExpiryWindowDays,
		CookieSecure:     cfg.Auth.CookieSecure,
		BaseURL:          cfg.Server.BaseURL,
	})

	events.OnStatusChange = func(appt models.Appointment, from, to string) {
		zl.Info("appointment status changed",
			zap.Uint("appointment_id", appt.ID), zap.String("from", from), zap.String("to", to))
	}

	if cfg.Telegram.Enabled {
		dg := &bot.Digester{
			DB:      db.Conn(),
			Sender:  bot.NewClient(cfg.Telegram.Token),
			ChatID:  cfg.Telegram.ChatID,
			Centers: centers,
			Loc:     loc,
			Window:  cfg.Schedule.ExpiryWindowDays,
			Log:     zl.Named("telegram"),
		}
		dg.Watch()
		c, err := dg.Start(cfg.Telegram)
		if err != nil {
			zl.Fatal("telegram digest", zap.Error(err))
		}
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.Router(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("backoffice listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("listen", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	zl.Info("stopped")
}
