package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/events"
	"github.com/kentra/backoffice/internal/models"
)

// transitions lists the allowed moves. Every status may move to every other
// one, and re-applying the current status is a no-op.
var transitions = map[string][]string{
	models.StatusScheduled: {models.StatusCompleted, models.StatusCanceled},
	models.StatusCompleted: {models.StatusScheduled, models.StatusCanceled},
	models.StatusCanceled:  {models.StatusScheduled, models.StatusCompleted},
}

// ParseStatus normalizes s and reports whether it names a known status.
func ParseStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	_, ok := transitions[s]
	return s, ok
}

func CanTransition(from, to string) bool {
	if from == to {
		_, ok := transitions[from]
		return ok
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetAppointmentStatus moves an appointment to the given status. Moving into
// or out of canceled changes the pair's remaining balance, which is derived
// on the next read.
func SetAppointmentStatus(ctx context.Context, db *gorm.DB, id uint, to string) (models.Appointment, error) {
	to, ok := ParseStatus(to)
	if !ok {
		return models.Appointment{}, ErrInvalidStatus
	}

	var appt models.Appointment
	var from string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return errors.Wrap(err, "load appointment")
		}
		from = appt.Status
		if !CanTransition(from, to) {
			return ErrInvalidStatus
		}
		if from == to {
			return nil
		}
		if err := tx.Model(&appt).Update("status", to).Error; err != nil {
			return errors.Wrap(err, "update status")
		}
		return nil
	})
	if err != nil {
		return appt, err
	}

	if from != to && events.OnStatusChange != nil {
		events.OnStatusChange(appt, from, to)
	}
	return appt, nil
}
