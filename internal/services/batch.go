package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kentra/backoffice/internal/models"
)

type Outcome string

const (
	OutcomeFull    Outcome = "full"
	OutcomePartial Outcome = "partial"
)

// BatchRequest asks for Count weekly sessions of one service for one student.
type BatchRequest struct {
	StudentNationalID string
	ServiceID         uint
	StartDay          time.Time
	StartTime         string // HH:MM; empty means the configured default
	DurationMin       int    // <= 0 means the configured default
	Count             int
	SkipHolidays      bool
}

type BatchResult struct {
	Outcome   Outcome
	Requested int
	// Allowed is min(Requested, remaining entitlement).
	Allowed      int
	Created      int
	Center       string
	Appointments []models.Appointment
}

type SchedulerConfig struct {
	Rules           WalkRules
	DefaultStart    string
	DefaultDuration int
}

// Scheduler places recurring appointments against a student's entitlement.
type Scheduler struct {
	db  *gorm.DB
	cfg SchedulerConfig
	log *zap.Logger
}

func NewScheduler(db *gorm.DB, cfg SchedulerConfig, log *zap.Logger) *Scheduler {
	if cfg.DefaultStart == "" {
		cfg.DefaultStart = "09:00"
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 45
	}
	if cfg.Rules.IntervalDays <= 0 {
		cfg.Rules = DefaultWalkRules
	}
	return &Scheduler{db: db, cfg: cfg, log: log}
}

func (s *Scheduler) Rules() WalkRules { return s.cfg.Rules }

// CreateBatch validates the request, caps it by the remaining entitlement,
// walks the calendar and inserts the appointments in one transaction.
// The entitlement row is locked for the duration of the transaction so two
// concurrent batches cannot both spend the same remaining sessions.
func (s *Scheduler) CreateBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	res := BatchResult{Requested: req.Count}
	if req.Count < 0 {
		return res, ErrBadCount
	}
	if req.DurationMin < 0 {
		return res, ErrBadDuration
	}

	if req.StartDay.IsZero() {
		return res, ErrBadDate
	}
	start := Day(req.StartDay)

	clock := req.StartTime
	if clock == "" {
		clock = s.cfg.DefaultStart
	}
	clock, ok := ParseClock(clock)
	if !ok {
		return res, ErrBadTime
	}
	duration := req.DurationMin
	if duration == 0 {
		duration = s.cfg.DefaultDuration
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st models.Student
		if err := tx.Where("national_id = ?", req.StudentNationalID).First(&st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return errors.Wrap(err, "load student")
		}
		var svc models.Service
		if err := tx.First(&svc, req.ServiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceNotFound
			}
			return errors.Wrap(err, "load service")
		}
		res.Center = st.Center

		var cutoff *time.Time
		if st.AssessmentExpiry != nil {
			c := DateOf(*st.AssessmentExpiry)
			cutoff = &c
		}
		if cutoff != nil && start.After(*cutoff) {
			return ErrAssessmentExpired
		}
		if s.cfg.Rules.Stuck(start) {
			return ErrRestDayStart
		}

		var ent models.Entitlement
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND service_id = ?", st.ID, svc.ID).
			First(&ent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceNotAssigned
			}
			return errors.Wrap(err, "lock entitlement")
		}

		consumed, err := NewLedger(tx).Consumed(ctx, st.ID, svc.ID)
		if err != nil {
			return err
		}
		remaining := Remaining(int64(ent.TotalSessions), consumed)
		res.Allowed = res.Requested
		if int64(res.Allowed) > remaining {
			res.Allowed = int(remaining)
		}
		if res.Allowed == 0 {
			return ErrNoSessionsAvailable
		}

		var holidays HolidaySet
		if req.SkipHolidays {
			var until time.Time
			if cutoff != nil {
				until = *cutoff
			}
			if holidays, err = LoadHolidays(ctx, tx, st.Center, start, until); err != nil {
				return errors.Wrap(err, "load holidays")
			}
		}

		w := NewWalker(start, cutoff, s.cfg.Rules, holidays)
		days := w.Take(res.Allowed)
		if len(days) == 0 && w.Truncated() {
			return ErrAssessmentExpired
		}

		appts := make([]models.Appointment, 0, len(days))
		for _, d := range days {
			dur := duration
			appts = append(appts, models.Appointment{
				StudentID:   st.ID,
				ServiceID:   svc.ID,
				Center:      st.Center,
				Day:         DateValue(d),
				StartTime:   clock,
				DurationMin: &dur,
				Status:      models.StatusScheduled,
			})
		}
		if len(appts) > 0 {
			if err := tx.Omit(clause.Associations).Create(&appts).Error; err != nil {
				return errors.Wrap(err, "insert appointments")
			}
		}

		res.Appointments = appts
		res.Created = len(appts)
		res.Outcome = OutcomeFull
		if res.Created < res.Allowed {
			res.Outcome = OutcomePartial
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.log.Info("batch scheduled",
		zap.String("student", req.StudentNationalID),
		zap.Uint("service_id", req.ServiceID),
		zap.String("start", ISODate(start)),
		zap.Int("requested", res.Requested),
		zap.Int("allowed", res.Allowed),
		zap.Int("created", res.Created),
		zap.String("outcome", string(res.Outcome)),
	)
	return res, nil
}
