package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type holidaysVM struct {
	page
	Center   string
	Centers  []services.Center
	Holidays []models.Holiday
	Today    time.Time
}

func holidaysURL(center string) string {
	return "/holidays?center=" + url.QueryEscape(center)
}

// GET /holidays
func (a *App) Holidays() http.HandlerFunc {
	view := a.view("holidays.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		center := a.Centers.Normalize(r.URL.Query().Get("center"))
		var list []models.Holiday
		if err := db.Conn().Where("center = ?", center).Order("day").Find(&list).Error; err != nil {
			a.dbError(w, err)
			return
		}
		a.render(w, view, "holidays.tmpl", holidaysVM{
			page:     a.page(r, "Αργίες"),
			Center:   center,
			Centers:  a.Centers.List(),
			Holidays: list,
			Today:    a.today(),
		})
	}
}

// POST /holidays
func (a *App) HolidayAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	center := a.Centers.Normalize(r.FormValue("center"))
	back := holidaysURL(center)

	day, ok := services.ParseDate(r.FormValue("day"))
	if !ok {
		http.Redirect(w, r, withFlash(back, "error", "bad_date"), http.StatusSeeOther)
		return
	}

	var n int64
	if err := db.Conn().Model(&models.Holiday{}).
		Where("center = ? AND day = ?", center, services.DateValue(day)).
		Count(&n).Error; err != nil {
		a.dbError(w, err)
		return
	}
	if n > 0 {
		http.Redirect(w, r, withFlash(back, "error", "exists"), http.StatusSeeOther)
		return
	}

	h := models.Holiday{Center: center, Day: services.DateValue(day), Note: strings.TrimSpace(r.FormValue("note"))}
	if err := db.Conn().Create(&h).Error; err != nil {
		a.dbError(w, err)
		return
	}
	a.Log.Info("holiday added", zap.String("center", center), zap.String("day", services.ISODate(day)))
	http.Redirect(w, r, withFlash(back, "ok", "saved"), http.StatusSeeOther)
}

// POST /holidays/delete
func (a *App) HolidayDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	center := a.Centers.Normalize(r.FormValue("center"))
	if id, err := strconv.ParseUint(r.FormValue("holiday_id"), 10, 64); err == nil {
		if err := db.Conn().Delete(&models.Holiday{}, id).Error; err != nil {
			a.dbError(w, err)
			return
		}
	}
	http.Redirect(w, r, withFlash(holidaysURL(center), "ok", "deleted"), http.StatusSeeOther)
}
