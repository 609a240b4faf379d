package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type scheduleVM struct {
	page
	Grid        services.WeekGrid
	Center      string
	CenterLabel string
	Centers     []services.Center
	Students    []models.Student
	Services    []models.Service
	Remaining   map[string]int64
	Today       time.Time
	Next        string
}

func (a *App) weekParams(r *http.Request) (string, time.Time) {
	center := a.Centers.Normalize(r.URL.Query().Get("center"))
	week, ok := services.ParseDate(r.URL.Query().Get("week"))
	if !ok {
		week = a.today()
	}
	return center, week
}

func scheduleURL(center string, day time.Time) string {
	return "/schedule?center=" + url.QueryEscape(center) + "&week=" + services.ISODate(services.StartOfWeek(day))
}

// GET /schedule
func (a *App) Schedule() http.HandlerFunc {
	view := a.view("schedule.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		center, week := a.weekParams(r)

		grid, err := services.BuildWeekGrid(ctx, db.Conn(), center, week, a.Scheduler.Rules())
		if err != nil {
			a.dbError(w, err)
			return
		}
		remaining, err := services.NewLedger(db.Conn()).RemainingIndex(ctx)
		if err != nil {
			a.dbError(w, err)
			return
		}
		var students []models.Student
		if err := db.Conn().Order("last_name, first_name").Find(&students).Error; err != nil {
			a.dbError(w, err)
			return
		}
		var svcs []models.Service
		if err := db.Conn().Order("name").Find(&svcs).Error; err != nil {
			a.dbError(w, err)
			return
		}

		a.render(w, view, "schedule.tmpl", scheduleVM{
			page:        a.page(r, "Πρόγραμμα"),
			Grid:        grid,
			Center:      center,
			CenterLabel: a.Centers.Label(center),
			Centers:     a.Centers.List(),
			Students:    students,
			Services:    svcs,
			Remaining:   remaining,
			Today:       a.today(),
			Next:        scheduleURL(center, grid.Monday),
		})
	}
}

// batchErrorKeys maps scheduler outcomes to flash keys.
var batchErrorKeys = []struct {
	err error
	key string
}{
	{services.ErrStudentNotFound, "not_found"},
	{services.ErrServiceNotFound, "not_found"},
	{services.ErrBadDate, "bad_date"},
	{services.ErrBadTime, "bad_time"},
	{services.ErrBadCount, "bad_count"},
	{services.ErrBadDuration, "bad_duration"},
	{services.ErrAssessmentExpired, "expiry_limit"},
	{services.ErrServiceNotAssigned, "service_not_assigned"},
	{services.ErrNoSessionsAvailable, "no_sessions"},
	{services.ErrRestDayStart, "rest_day"},
}

func batchErrorKey(err error) (string, bool) {
	for _, m := range batchErrorKeys {
		if errors.Is(err, m.err) {
			return m.key, true
		}
	}
	return "", false
}

// POST /schedule/create-batch
func (a *App) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := services.BatchRequest{
		StudentNationalID: strings.TrimSpace(r.FormValue("student_nid")),
		StartTime:         strings.TrimSpace(r.FormValue("start_time")),
		SkipHolidays:      r.FormValue("skip_holidays") != "",
	}
	back := "/schedule"

	serviceID, err := strconv.ParseUint(strings.TrimSpace(r.FormValue("service_id")), 10, 64)
	if err != nil {
		http.Redirect(w, r, withFlash(back, "error", "not_found"), http.StatusSeeOther)
		return
	}
	req.ServiceID = uint(serviceID)

	start, ok := services.ParseDate(r.FormValue("start_day"))
	if !ok {
		http.Redirect(w, r, withFlash(back, "error", "bad_date"), http.StatusSeeOther)
		return
	}
	req.StartDay = start

	count, err := strconv.Atoi(strings.TrimSpace(r.FormValue("count")))
	if err != nil || count < 0 {
		http.Redirect(w, r, withFlash(back, "error", "bad_count"), http.StatusSeeOther)
		return
	}
	req.Count = count

	// empty means the configured default
	if raw := strings.TrimSpace(r.FormValue("duration_min")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			http.Redirect(w, r, withFlash(back, "error", "bad_duration"), http.StatusSeeOther)
			return
		}
		req.DurationMin = d
	}

	res, err := a.Scheduler.CreateBatch(r.Context(), req)
	if res.Center != "" {
		back = scheduleURL(res.Center, start)
	}
	if err != nil {
		key, known := batchErrorKey(err)
		if !known {
			a.dbError(w, err)
			return
		}
		a.Log.Info("batch rejected",
			zap.String("student", req.StudentNationalID), zap.Uint("service_id", req.ServiceID), zap.String("reason", key))
		http.Redirect(w, r, withFlash(back, "error", key), http.StatusSeeOther)
		return
	}

	if res.Outcome == services.OutcomePartial {
		http.Redirect(w, r, withFlash(back, "ok", "partial", "created", strconv.Itoa(res.Created)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, withFlash(back, "ok", "created"), http.StatusSeeOther)
}

// POST /schedule/{id}/status
func (a *App) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := localPath(r.FormValue("next"), "/schedule")

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, withFlash(next, "error", "bad_status"), http.StatusSeeOther)
		return
	}
	_, err = services.SetAppointmentStatus(r.Context(), db.Conn(), uint(id), r.FormValue("status"))
	switch {
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrAppointmentNotFound):
		http.Redirect(w, r, withFlash(next, "error", "bad_status"), http.StatusSeeOther)
		return
	case err != nil:
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, withFlash(next, "ok", "status"), http.StatusSeeOther)
}

// GET /schedule/export.xlsx
func (a *App) ScheduleExport(w http.ResponseWriter, r *http.Request) {
	center, week := a.weekParams(r)
	grid, err := services.BuildWeekGrid(r.Context(), db.Conn(), center, week, a.Scheduler.Rules())
	if err != nil {
		a.dbError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteWeekWorkbook(&buf, grid, a.Centers.Label(center)); err != nil {
		a.Log.Error("export schedule", zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("schedule_%s_%s.xlsx", center, services.ISODate(grid.Monday))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}
