package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/models"
)

type ExpiringStudent struct {
	ID         uint
	NationalID string
	Name       string
	Center     string
	Expiry     time.Time
	DaysLeft   int
}

// Digest is the staff overview of one day.
type Digest struct {
	Day           time.Time
	TotalStudents int64
	Today         []AgendaItem
	Expiring      []ExpiringStudent
}

// BuildDigest collects the day's scheduled appointments and the students
// whose assessment expires within window days of day, overdue ones included.
func BuildDigest(ctx context.Context, db *gorm.DB, day time.Time, window int) (Digest, error) {
	d := Digest{Day: Day(day)}

	if err := db.WithContext(ctx).Model(&models.Student{}).Count(&d.TotalStudents).Error; err != nil {
		return d, errors.Wrap(err, "count students")
	}

	today, err := Agenda(ctx, db, AgendaFilter{From: d.Day, Statuses: []string{models.StatusScheduled}})
	if err != nil {
		return d, err
	}
	sort.SliceStable(today, func(i, j int) bool { return today[i].Center < today[j].Center })
	d.Today = today

	var students []models.Student
	err = db.WithContext(ctx).
		Where("assessment_expiry IS NOT NULL AND assessment_expiry <= ?", DateValue(d.Day.AddDate(0, 0, window))).
		Order("assessment_expiry, last_name, first_name").
		Find(&students).Error
	if err != nil {
		return d, errors.Wrap(err, "list expiring assessments")
	}
	for _, s := range students {
		exp := DateOf(*s.AssessmentExpiry)
		d.Expiring = append(d.Expiring, ExpiringStudent{
			ID:         s.ID,
			NationalID: s.NationalID,
			Name:       s.FullName(),
			Center:     s.Center,
			Expiry:     exp,
			DaysLeft:   int(exp.Sub(d.Day).Hours() / 24),
		})
	}
	return d, nil
}

// Text renders the digest as a plain chat message.
func (d Digest) Text(centers Centers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Πρόγραμμα %s\n", DisplayDate(d.Day))
	if len(d.Today) == 0 {
		b.WriteString("Κανένα ραντεβού.\n")
	}
	center := ""
	for _, it := range d.Today {
		if it.Center != center {
			center = it.Center
			fmt.Fprintf(&b, "\n%s\n", centers.Label(center))
		}
		fmt.Fprintf(&b, "%s %s - %s\n", it.StartTime, it.StudentName(), it.ServiceName)
	}
	if len(d.Expiring) > 0 {
		b.WriteString("\nΛήξη γνωμάτευσης:\n")
		for _, s := range d.Expiring {
			fmt.Fprintf(&b, "%s %s (%d ημ.)\n", DisplayDate(s.Expiry), s.Name, s.DaysLeft)
		}
	}
	return b.String()
}
