package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/events"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Digester posts the daily staff digest to one chat.
type Digester struct {
	DB      *gorm.DB
	Sender  Sender
	ChatID  int64
	Centers services.Centers
	Loc     *time.Location
	Window  int
	Log     *zap.Logger
}

// Run sends the digest for the current day.
func (d *Digester) Run(ctx context.Context) error {
	dg, err := services.BuildDigest(ctx, d.DB, services.Today(d.Loc), d.Window)
	if err != nil {
		return errors.Wrap(err, "build digest")
	}
	if err := d.Sender.SendMessage(ctx, d.ChatID, dg.Text(d.Centers)); err != nil {
		return errors.Wrap(err, "send digest")
	}
	d.Log.Info("digest sent",
		zap.Int("appointments", len(dg.Today)),
		zap.Int("expiring", len(dg.Expiring)))
	return nil
}

// NotifyCanceled tells the staff chat that an appointment was canceled.
func (d *Digester) NotifyCanceled(ctx context.Context, appt models.Appointment) error {
	var st models.Student
	if err := d.DB.WithContext(ctx).First(&st, appt.StudentID).Error; err != nil {
		return errors.Wrap(err, "load student")
	}
	text := "Ακύρωση: " + st.FullName() + ", " +
		services.DisplayDate(services.DateOf(appt.Day)) + " " + appt.StartTime +
		" (" + d.Centers.Label(appt.Center) + ")"
	return d.Sender.SendMessage(ctx, d.ChatID, text)
}

// Watch hooks status changes so cancellations reach the chat. Any hook
// already installed keeps running first.
func (d *Digester) Watch() {
	prev := events.OnStatusChange
	events.OnStatusChange = func(appt models.Appointment, from, to string) {
		if prev != nil {
			prev(appt, from, to)
		}
		if to != models.StatusCanceled {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := d.NotifyCanceled(ctx, appt); err != nil {
				d.Log.Warn("cancel notice failed", zap.Uint("appointment_id", appt.ID), zap.Error(err))
			}
		}()
	}
}

// Start schedules Run on cfg.DigestCron in d.Loc.
func (d *Digester) Start(cfg config.TelegramConfig) (*cron.Cron, error) {
	logger := cronLogger{d.Log.Sugar()}
	c := cron.New(
		cron.WithLocation(d.Loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(cfg.DigestCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := d.Run(ctx); err != nil {
			d.Log.Error("digest failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "digest schedule %q", cfg.DigestCron)
	}
	c.Start()
	return c, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
