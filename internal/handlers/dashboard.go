package handlers

import (
	"net/http"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/services"
)

type dashboardVM struct {
	page
	Digest  services.Digest
	Window  int
	Centers services.Centers
}

// GET /
func (a *App) Dashboard() http.HandlerFunc {
	view := a.view("dashboard.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := services.BuildDigest(r.Context(), db.Conn(), a.today(), a.ExpiryWindowDays)
		if err != nil {
			a.dbError(w, err)
			return
		}
		a.render(w, view, "dashboard.tmpl", dashboardVM{
			page:    a.page(r, "Αρχική"),
			Digest:  d,
			Window:  a.ExpiryWindowDays,
			Centers: a.Centers,
		})
	}
}
