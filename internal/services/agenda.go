package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AgendaItem is one appointment joined with its student and service.
type AgendaItem struct {
	ID          uint
	Day         datatypes.Date
	StartTime   string
	DurationMin *int
	Center      string
	Status      string
	StudentID   uint
	NationalID  string
	FirstName   string
	LastName    string
	ServiceID   uint
	ServiceName string
}

func (a AgendaItem) Date() time.Time    { return DateOf(a.Day) }
func (a AgendaItem) StudentName() string { return a.LastName + " " + a.FirstName }

func (a AgendaItem) Duration() int {
	if a.DurationMin == nil {
		return 0
	}
	return *a.DurationMin
}

// AgendaFilter narrows an agenda query. Empty fields match everything; a
// zero To means the single day From.
type AgendaFilter struct {
	Center   string
	From, To time.Time
	Statuses []string
}

// Agenda lists appointments in [From, To] ordered by day, time and student.
func Agenda(ctx context.Context, db *gorm.DB, f AgendaFilter) ([]AgendaItem, error) {
	to := f.To
	if to.IsZero() {
		to = f.From
	}
	q := db.WithContext(ctx).Table("appointments").
		Select(`appointments.id, appointments.day, appointments.start_time, appointments.duration_min,
			appointments.center, appointments.status,
			students.id AS student_id, students.national_id, students.first_name, students.last_name,
			services.id AS service_id, services.name AS service_name`).
		Joins("JOIN students ON students.id = appointments.student_id").
		Joins("JOIN services ON services.id = appointments.service_id").
		Where("appointments.day BETWEEN ? AND ?", DateValue(f.From), DateValue(to)).
		Order("appointments.day, appointments.start_time, students.last_name, students.first_name")
	if f.Center != "" {
		q = q.Where("appointments.center = ?", f.Center)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("appointments.status IN ?", f.Statuses)
	}

	var items []AgendaItem
	if err := q.Scan(&items).Error; err != nil {
		return nil, errors.Wrap(err, "load agenda")
	}
	return items, nil
}

const (
	gridFirstSlot = 8 * 60
	gridLastSlot  = 20 * 60
	gridStep      = 30
)

// WeekGrid is a week of appointments bucketed into half-hour slots.
type WeekGrid struct {
	Center string
	Monday time.Time
	Days   []time.Time
	Slots  []string
	cells  map[string][]AgendaItem
}

func (g WeekGrid) Cell(day time.Time, slot string) []AgendaItem {
	return g.cells[ISODate(day)+"|"+slot]
}

// Items returns every appointment of the grid in agenda order.
func (g WeekGrid) Items() []AgendaItem {
	var out []AgendaItem
	for _, d := range g.Days {
		for _, s := range g.Slots {
			out = append(out, g.Cell(d, s)...)
		}
	}
	return out
}

func (g WeekGrid) PrevWeek() time.Time { return g.Monday.AddDate(0, 0, -7) }
func (g WeekGrid) NextWeek() time.Time { return g.Monday.AddDate(0, 0, 7) }

// BuildWeekGrid loads the week containing day for one center. Rest days are
// left out of the grid; appointments outside opening hours land in the
// nearest slot.
func BuildWeekGrid(ctx context.Context, db *gorm.DB, center string, day time.Time, rules WalkRules) (WeekGrid, error) {
	g := WeekGrid{Center: center, Monday: StartOfWeek(day), cells: map[string][]AgendaItem{}}
	for i := 0; i < 7; i++ {
		d := g.Monday.AddDate(0, 0, i)
		if !rules.IsRestDay(d) {
			g.Days = append(g.Days, d)
		}
	}
	for m := gridFirstSlot; m <= gridLastSlot; m += gridStep {
		g.Slots = append(g.Slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}

	items, err := Agenda(ctx, db, AgendaFilter{Center: center, From: g.Monday, To: g.Monday.AddDate(0, 0, 6)})
	if err != nil {
		return g, err
	}
	for _, it := range items {
		key := ISODate(it.Date()) + "|" + slotOf(it.StartTime)
		g.cells[key] = append(g.cells[key], it)
	}
	return g, nil
}

func slotOf(clock string) string {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return fmt.Sprintf("%02d:%02d", gridFirstSlot/60, gridFirstSlot%60)
	}
	m := t.Hour()*60 + t.Minute()
	m -= m % gridStep
	if m < gridFirstSlot {
		m = gridFirstSlot
	}
	if m > gridLastSlot {
		m = gridLastSlot
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
