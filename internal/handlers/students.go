package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type studentsVM struct {
	page
	Students []models.Student
	Centers  []services.Center
	Q        string
	Center   string
}

func filteredStudents(r *http.Request, centers services.Centers) (*gorm.DB, string, string) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	center := strings.TrimSpace(r.URL.Query().Get("center"))

	tx := db.Conn().Order("last_name, first_name")
	if center != "" {
		center = centers.Normalize(center)
		tx = tx.Where("center = ?", center)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR national_id LIKE ? OR LOWER(parent_name) LIKE ?",
			like, like, like, like)
	}
	return tx, q, center
}

// GET /students
func (a *App) Students() http.HandlerFunc {
	view := a.view("students.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		tx, q, center := filteredStudents(r, a.Centers)
		var list []models.Student
		if err := tx.Find(&list).Error; err != nil {
			a.dbError(w, err)
			return
		}
		a.render(w, view, "students.tmpl", studentsVM{
			page:     a.page(r, "Μαθητές"),
			Students: list,
			Centers:  a.Centers.List(),
			Q:        q,
			Center:   center,
		})
	}
}

// GET /students.csv
func (a *App) StudentsCSV(w http.ResponseWriter, r *http.Request) {
	tx, _, _ := filteredStudents(r, a.Centers)
	var list []models.Student
	if err := tx.Find(&list).Error; err != nil {
		a.dbError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	// BOM so spreadsheet apps pick UTF-8 for Greek names
	_, _ = w.Write([]byte("\xEF\xBB\xBF"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"AMKA", "Επώνυμο", "Όνομα", "Κέντρο", "Γέννηση", "Γονέας", "Τηλέφωνο", "Λήξη γνωμάτευσης"})
	for _, s := range list {
		_ = cw.Write([]string{
			s.NationalID, s.LastName, s.FirstName, a.Centers.Label(s.Center),
			optDate(s.BirthDate), s.ParentName, s.ParentPhone, optDate(s.AssessmentExpiry),
		})
	}
	cw.Flush()
}

func optDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return services.DisplayDate(services.DateOf(*d))
}

func optDateValue(s string) (*datatypes.Date, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, ok := services.ParseDate(s)
	if !ok {
		return nil, false
	}
	d := services.DateValue(t)
	return &d, true
}

type studentNewVM struct {
	page
	Services []models.Service
	Centers  []services.Center
}

// GET /students/new
func (a *App) StudentNewForm() http.HandlerFunc {
	view := a.view("student_new.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		var svcs []models.Service
		if err := db.Conn().Order("name").Find(&svcs).Error; err != nil {
			a.dbError(w, err)
			return
		}
		a.render(w, view, "student_new.tmpl", studentNewVM{
			page:     a.page(r, "Νέος μαθητής"),
			Services: svcs,
			Centers:  a.Centers.List(),
		})
	}
}

type studentForm struct {
	NationalID  string `validate:"required,numeric,len=11"`
	FirstName   string `validate:"required,max=100"`
	LastName    string `validate:"required,max=100"`
	ParentName  string `validate:"max=200"`
	ParentPhone string `validate:"max=32"`
}

// POST /students
func (a *App) StudentCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := studentForm{
		NationalID:  strings.TrimSpace(r.FormValue("national_id")),
		FirstName:   strings.TrimSpace(r.FormValue("first_name")),
		LastName:    strings.TrimSpace(r.FormValue("last_name")),
		ParentName:  strings.TrimSpace(r.FormValue("parent_name")),
		ParentPhone: strings.TrimSpace(r.FormValue("parent_phone")),
	}
	if err := a.validate.Struct(form); err != nil {
		http.Redirect(w, r, "/students/new?error=invalid", http.StatusSeeOther)
		return
	}
	birth, ok1 := optDateValue(r.FormValue("birth_date"))
	expiry, ok2 := optDateValue(r.FormValue("assessment_expiry"))
	if !ok1 || !ok2 {
		http.Redirect(w, r, "/students/new?error=bad_date", http.StatusSeeOther)
		return
	}
	phone, ok := services.NormPhone(form.ParentPhone)
	if !ok {
		http.Redirect(w, r, "/students/new?error=bad_phone", http.StatusSeeOther)
		return
	}

	st := models.Student{
		NationalID:       form.NationalID,
		Center:           a.Centers.Normalize(r.FormValue("center")),
		FirstName:        form.FirstName,
		LastName:         form.LastName,
		BirthDate:        birth,
		ParentName:       form.ParentName,
		ParentPhone:      phone,
		AssessmentExpiry: expiry,
		AdminComment:     strings.TrimSpace(r.FormValue("admin_comment")),
	}

	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Student{}).Where("national_id = ?", st.NationalID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errExists
		}
		if err := tx.Omit(clause.Associations).Create(&st).Error; err != nil {
			return err
		}

		var svcs []models.Service
		if err := tx.Find(&svcs).Error; err != nil {
			return err
		}
		for _, svc := range svcs {
			raw := strings.TrimSpace(r.FormValue(fmt.Sprintf("sessions_%d", svc.ID)))
			if raw == "" {
				continue
			}
			total, err := strconv.Atoi(raw)
			if err != nil || total < 0 {
				total = 0
			}
			ent := models.Entitlement{StudentID: st.ID, ServiceID: svc.ID, TotalSessions: total}
			if err := tx.Omit(clause.Associations).Create(&ent).Error; err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, errExists):
		http.Redirect(w, r, "/students/new?error=exists", http.StatusSeeOther)
		return
	case err != nil:
		a.dbError(w, err)
		return
	}

	a.Log.Info("student created", zap.String("national_id", st.NationalID), zap.String("center", st.Center))
	http.Redirect(w, r, "/students/"+st.NationalID+"?ok=saved", http.StatusSeeOther)
}

var errExists = errors.New("already exists")

type studentPageVM struct {
	page
	Student      models.Student
	CenterLabel  string
	Balances     []services.Balance
	Appointments []services.AgendaItem
	Payments     []models.Payment
	PaidTotal    int64
	Services     []models.Service
	Today        time.Time
	Expired      bool
	Next         string
}

func loadStudent(r *http.Request) (models.Student, error) {
	var st models.Student
	err := db.Conn().Where("national_id = ?", chi.URLParam(r, "nid")).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, services.ErrStudentNotFound
	}
	return st, err
}

// GET /students/{nid}
func (a *App) StudentPage() http.HandlerFunc {
	view := a.view("student.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := loadStudent(r)
		if errors.Is(err, services.ErrStudentNotFound) {
			http.Redirect(w, r, "/students?error=not_found", http.StatusSeeOther)
			return
		}
		if err != nil {
			a.dbError(w, err)
			return
		}
		ctx := r.Context()

		balances, err := services.NewLedger(db.Conn()).Balances(ctx, st.ID)
		if err != nil {
			a.dbError(w, err)
			return
		}

		var appts []services.AgendaItem
		err = db.Conn().WithContext(ctx).Table("appointments").
			Select(`appointments.id, appointments.day, appointments.start_time, appointments.duration_min,
				appointments.center, appointments.status, appointments.student_id, appointments.service_id,
				services.name AS service_name`).
			Joins("JOIN services ON services.id = appointments.service_id").
			Where("appointments.student_id = ?", st.ID).
			Order("appointments.day DESC, appointments.start_time DESC").
			Scan(&appts).Error
		if err != nil {
			a.dbError(w, err)
			return
		}

		var pays []models.Payment
		if err := db.Conn().Where("student_id = ?", st.ID).Order("paid_on DESC, id DESC").Find(&pays).Error; err != nil {
			a.dbError(w, err)
			return
		}
		var paid int64
		for _, p := range pays {
			paid += p.AmountCents
		}

		var svcs []models.Service
		if err := db.Conn().Order("name").Find(&svcs).Error; err != nil {
			a.dbError(w, err)
			return
		}

		today := a.today()
		a.render(w, view, "student.tmpl", studentPageVM{
			page:         a.page(r, st.FullName()),
			Student:      st,
			CenterLabel:  a.Centers.Label(st.Center),
			Balances:     balances,
			Appointments: appts,
			Payments:     pays,
			PaidTotal:    paid,
			Services:     svcs,
			Today:        today,
			Expired:      st.AssessmentExpiry != nil && services.DateOf(*st.AssessmentExpiry).Before(today),
			Next:         "/students/" + st.NationalID,
		})
	}
}

// POST /students/{nid}/entitlements
func (a *App) EntitlementSave(w http.ResponseWriter, r *http.Request) {
	st, err := loadStudent(r)
	if err != nil {
		http.Redirect(w, r, "/students?error=not_found", http.StatusSeeOther)
		return
	}
	back := "/students/" + st.NationalID

	serviceID, err1 := strconv.ParseUint(r.FormValue("service_id"), 10, 64)
	total, err2 := strconv.Atoi(strings.TrimSpace(r.FormValue("total_sessions")))
	if err1 != nil || err2 != nil || total < 0 {
		http.Redirect(w, r, withFlash(back, "error", "invalid"), http.StatusSeeOther)
		return
	}
	var svc models.Service
	if err := db.Conn().First(&svc, serviceID).Error; err != nil {
		http.Redirect(w, r, withFlash(back, "error", "not_found"), http.StatusSeeOther)
		return
	}

	ent := models.Entitlement{StudentID: st.ID, ServiceID: svc.ID, TotalSessions: total}
	err = db.Conn().Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_sessions", "updated_at"}),
	}).Create(&ent).Error
	if err != nil {
		a.dbError(w, err)
		return
	}
	a.Log.Info("entitlement saved",
		zap.String("national_id", st.NationalID), zap.Uint("service_id", svc.ID), zap.Int("total", total))
	http.Redirect(w, r, withFlash(back, "ok", "saved"), http.StatusSeeOther)
}

// POST /students/{nid}/assessment
func (a *App) AssessmentRenew(w http.ResponseWriter, r *http.Request) {
	st, err := loadStudent(r)
	if err != nil {
		http.Redirect(w, r, "/students?error=not_found", http.StatusSeeOther)
		return
	}
	back := "/students/" + st.NationalID

	d, ok := services.ParseDate(r.FormValue("assessment_expiry"))
	if !ok {
		http.Redirect(w, r, withFlash(back, "error", "bad_date"), http.StatusSeeOther)
		return
	}
	if err := db.Conn().Model(&st).Update("assessment_expiry", services.DateValue(d)).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, withFlash(back, "ok", "renewed"), http.StatusSeeOther)
}

// POST /students/{nid}/delete
func (a *App) StudentDelete(w http.ResponseWriter, r *http.Request) {
	st, err := loadStudent(r)
	if err != nil {
		http.Redirect(w, r, "/students?error=not_found", http.StatusSeeOther)
		return
	}
	err = db.Conn().Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.Appointment{}, &models.Payment{}, &models.Entitlement{}} {
			if err := tx.Where("student_id = ?", st.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&st).Error
	})
	if err != nil {
		a.dbError(w, err)
		return
	}
	a.Log.Info("student deleted", zap.String("national_id", st.NationalID))
	http.Redirect(w, r, "/students?ok=deleted", http.StatusSeeOther)
}
