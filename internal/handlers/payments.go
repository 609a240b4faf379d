package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type paymentForm struct {
	AmountCents int64  `validate:"gt=0"`
	Comment     string `validate:"max=500"`
}

// POST /students/{nid}/payments
func (a *App) PaymentCreate(w http.ResponseWriter, r *http.Request) {
	st, err := loadStudent(r)
	if err != nil {
		http.Redirect(w, r, "/students?error=not_found", http.StatusSeeOther)
		return
	}
	back := "/students/" + st.NationalID

	paidOn := a.today()
	if raw := strings.TrimSpace(r.FormValue("paid_on")); raw != "" {
		d, ok := services.ParseDate(raw)
		if !ok {
			http.Redirect(w, r, withFlash(back, "error", "bad_date"), http.StatusSeeOther)
			return
		}
		paidOn = d
	}
	cents, ok := services.ParseAmountCents(r.FormValue("amount"))
	form := paymentForm{AmountCents: cents, Comment: strings.TrimSpace(r.FormValue("comment"))}
	if !ok || a.validate.Struct(form) != nil {
		http.Redirect(w, r, withFlash(back, "error", "bad_amount"), http.StatusSeeOther)
		return
	}

	p := models.Payment{
		StudentID:   st.ID,
		PaidOn:      services.DateValue(paidOn),
		AmountCents: form.AmountCents,
		Comment:     form.Comment,
	}
	if err := db.Conn().Create(&p).Error; err != nil {
		a.dbError(w, err)
		return
	}
	a.Log.Info("payment recorded", zap.String("national_id", st.NationalID), zap.Int64("cents", p.AmountCents))
	http.Redirect(w, r, withFlash(back, "ok", "paid"), http.StatusSeeOther)
}
