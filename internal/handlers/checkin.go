package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type checkinVM struct {
	page
	Appt        services.AgendaItem
	CenterLabel string
	Done        bool
}

// GET /checkin/{id}
func (a *App) CheckinForm() http.HandlerFunc {
	view := a.view("checkin.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		var item services.AgendaItem
		err = db.Conn().Table("appointments").
			Select(`appointments.id, appointments.day, appointments.start_time, appointments.duration_min,
				appointments.center, appointments.status,
				students.id AS student_id, students.national_id, students.first_name, students.last_name,
				services.id AS service_id, services.name AS service_name`).
			Joins("JOIN students ON students.id = appointments.student_id").
			Joins("JOIN services ON services.id = appointments.service_id").
			Where("appointments.id = ?", id).
			Scan(&item).Error
		if err != nil {
			a.dbError(w, err)
			return
		}
		if item.ID == 0 {
			http.NotFound(w, r)
			return
		}
		a.render(w, view, "checkin.tmpl", checkinVM{
			page:        a.page(r, "Check-in"),
			Appt:        item,
			CenterLabel: a.Centers.Label(item.Center),
			Done:        item.Status == models.StatusCompleted,
		})
	}
}

// POST /checkin/{id} marks the appointment completed.
func (a *App) CheckinConfirm(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	_, err = services.SetAppointmentStatus(r.Context(), db.Conn(), uint(id), models.StatusCompleted)
	switch {
	case errors.Is(err, services.ErrAppointmentNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		a.dbError(w, err)
		return
	}
	if u := CurrentUser(r); u != nil {
		a.Log.Info("checked in", zap.Uint64("appointment_id", id), zap.String("by", u.Username))
	}
	http.Redirect(w, r, "/checkin/"+raw+"?ok=checked_in", http.StatusSeeOther)
}
