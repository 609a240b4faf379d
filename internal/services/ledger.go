package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/models"
)

// ConsumingStatuses are the appointment states that use up an entitlement.
var ConsumingStatuses = []string{models.StatusScheduled, models.StatusCompleted}

// Remaining is max(total-consumed, 0).
func Remaining(total, consumed int64) int64 {
	if total-consumed < 0 {
		return 0
	}
	return total - consumed
}

// Balance is the derived state of one (student, service) entitlement.
type Balance struct {
	StudentID   uint
	ServiceID   uint
	ServiceName string
	Assigned    bool
	Total       int64
	Consumed    int64
	Completed   int64
	Remaining   int64
}

// Ledger derives entitlement usage from the appointments table. It never writes.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger reading through tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// Consumed counts the pair's scheduled and completed appointments.
func (l *Ledger) Consumed(ctx context.Context, studentID, serviceID uint) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("student_id = ? AND service_id = ? AND status IN ?", studentID, serviceID, ConsumingStatuses).
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "count consumed sessions")
	}
	return n, nil
}

// Balance reports the pair's entitlement. A missing entitlement yields
// Assigned=false and a zero total.
func (l *Ledger) Balance(ctx context.Context, studentID, serviceID uint) (Balance, error) {
	b := Balance{StudentID: studentID, ServiceID: serviceID}

	var ent models.Entitlement
	err := l.db.WithContext(ctx).
		Where("student_id = ? AND service_id = ?", studentID, serviceID).
		First(&ent).Error
	switch {
	case err == nil:
		b.Assigned = true
		b.Total = int64(ent.TotalSessions)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return b, errors.Wrap(err, "load entitlement")
	}

	if b.Consumed, err = l.Consumed(ctx, studentID, serviceID); err != nil {
		return b, err
	}
	b.Remaining = Remaining(b.Total, b.Consumed)
	return b, nil
}

type usageRow struct {
	StudentID uint
	ServiceID uint
	Consumed  int64
	Completed int64
}

func (l *Ledger) usage(ctx context.Context, studentID *uint) (map[[2]uint]usageRow, error) {
	q := l.db.WithContext(ctx).Model(&models.Appointment{}).
		Select(`student_id, service_id,
			SUM(CASE WHEN status IN ('scheduled','completed') THEN 1 ELSE 0 END) AS consumed,
			SUM(CASE WHEN status = 'completed'                 THEN 1 ELSE 0 END) AS completed`).
		Group("student_id, service_id")
	if studentID != nil {
		q = q.Where("student_id = ?", *studentID)
	}
	var rows []usageRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "aggregate appointment usage")
	}
	out := make(map[[2]uint]usageRow, len(rows))
	for _, r := range rows {
		out[[2]uint{r.StudentID, r.ServiceID}] = r
	}
	return out, nil
}

// Balances lists one balance per entitlement of the student, ordered by service name.
func (l *Ledger) Balances(ctx context.Context, studentID uint) ([]Balance, error) {
	var ents []models.Entitlement
	err := l.db.WithContext(ctx).
		Preload("Service").
		Where("student_id = ?", studentID).
		Find(&ents).Error
	if err != nil {
		return nil, errors.Wrap(err, "list entitlements")
	}

	usage, err := l.usage(ctx, &studentID)
	if err != nil {
		return nil, err
	}

	sort.Slice(ents, func(i, j int) bool { return ents[i].Service.Name < ents[j].Service.Name })

	out := make([]Balance, 0, len(ents))
	for _, e := range ents {
		u := usage[[2]uint{e.StudentID, e.ServiceID}]
		out = append(out, Balance{
			StudentID:   e.StudentID,
			ServiceID:   e.ServiceID,
			ServiceName: e.Service.Name,
			Assigned:    true,
			Total:       int64(e.TotalSessions),
			Consumed:    u.Consumed,
			Completed:   u.Completed,
			Remaining:   Remaining(int64(e.TotalSessions), u.Consumed),
		})
	}
	return out, nil
}

// RemainingIndex maps "<national id>|<service id>" to the remaining
// sessions of every entitlement.
func (l *Ledger) RemainingIndex(ctx context.Context) (map[string]int64, error) {
	type entRow struct {
		StudentID     uint
		NationalID    string
		ServiceID     uint
		TotalSessions int64
	}
	var ents []entRow
	err := l.db.WithContext(ctx).Table("entitlements").
		Select("entitlements.student_id, students.national_id, entitlements.service_id, entitlements.total_sessions").
		Joins("JOIN students ON students.id = entitlements.student_id").
		Scan(&ents).Error
	if err != nil {
		return nil, errors.Wrap(err, "list entitlements")
	}

	usage, err := l.usage(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(ents))
	for _, e := range ents {
		u := usage[[2]uint{e.StudentID, e.ServiceID}]
		out[fmt.Sprintf("%s|%d", e.NationalID, e.ServiceID)] = Remaining(e.TotalSessions, u.Consumed)
	}
	return out, nil
}
