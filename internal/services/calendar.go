package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/models"
)

// WalkRules are the calendar rules applied while placing recurring sessions.
type WalkRules struct {
	IntervalDays int
	// RestDays are weekdays on which no session is ever placed.
	RestDays []time.Weekday
}

// DefaultWalkRules is a weekly cadence with Sundays closed.
var DefaultWalkRules = WalkRules{IntervalDays: 7, RestDays: []time.Weekday{time.Sunday}}

func (r WalkRules) interval() int {
	if r.IntervalDays <= 0 {
		return 7
	}
	return r.IntervalDays
}

func (r WalkRules) IsRestDay(d time.Time) bool {
	return r.isRestWeekday(d.Weekday())
}

func (r WalkRules) isRestWeekday(wd time.Weekday) bool {
	for _, rest := range r.RestDays {
		if wd == rest {
			return true
		}
	}
	return false
}

// Stuck reports whether every weekday reachable from start is a rest day,
// e.g. a Sunday start with a weekly interval. Such a walk yields nothing.
func (r WalkRules) Stuck(start time.Time) bool {
	step := r.interval() % 7
	wd := int(start.Weekday())
	for k := 0; k < 7; k++ {
		if !r.isRestWeekday(time.Weekday((wd + k*step) % 7)) {
			return false
		}
	}
	return true
}

// HolidaySet holds closure days keyed by ISO date.
type HolidaySet map[string]struct{}

func (h HolidaySet) Contains(d time.Time) bool {
	_, ok := h[ISODate(d)]
	return ok
}

func (h HolidaySet) Add(d time.Time) {
	h[ISODate(d)] = struct{}{}
}

// LoadHolidays reads a center's holidays in [from, to]; a zero to means no upper bound.
func LoadHolidays(ctx context.Context, tx *gorm.DB, center string, from, to time.Time) (HolidaySet, error) {
	q := tx.WithContext(ctx).Model(&models.Holiday{}).
		Where("center = ? AND day >= ?", center, DateValue(from))
	if !to.IsZero() {
		q = q.Where("day <= ?", DateValue(to))
	}
	var rows []models.Holiday
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	set := make(HolidaySet, len(rows))
	for _, h := range rows {
		set.Add(DateOf(h.Day))
	}
	return set, nil
}

// Walker yields candidate days from a start day advancing by the rule
// interval. Rest days and holidays are skipped; a candidate past the cutoff
// ends the walk.
type Walker struct {
	next     time.Time
	cutoff   *time.Time
	rules    WalkRules
	holidays HolidaySet // nil when holidays are not skipped

	done      bool
	truncated bool
}

func NewWalker(start time.Time, cutoff *time.Time, rules WalkRules, holidays HolidaySet) *Walker {
	w := &Walker{next: Day(start), rules: rules, holidays: holidays}
	if cutoff != nil {
		c := Day(*cutoff)
		w.cutoff = &c
	}
	if rules.Stuck(w.next) {
		w.done = true
	}
	return w
}

// Next returns the next accepted day, or false once the walk is over.
func (w *Walker) Next() (time.Time, bool) {
	for !w.done {
		cand := w.next
		if w.cutoff != nil && cand.After(*w.cutoff) {
			w.done, w.truncated = true, true
			break
		}
		w.next = cand.AddDate(0, 0, w.rules.interval())

		if w.rules.IsRestDay(cand) {
			continue
		}
		if w.holidays != nil && w.holidays.Contains(cand) {
			continue
		}
		return cand, true
	}
	return time.Time{}, false
}

// Truncated reports whether the walk ended because of the cutoff.
func (w *Walker) Truncated() bool {
	return w.truncated
}

// Take collects up to n accepted days.
func (w *Walker) Take(n int) []time.Time {
	out := make([]time.Time, 0, n)
	for len(out) < n {
		d, ok := w.Next()
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out
}
