package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kentra/backoffice/internal/handlers"
)

func Router(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(app.Log))
	r.Use(middleware.Recoverer)

	// Public
	r.Get("/healthz", handlers.Health)
	r.Get("/login", app.LoginForm())
	r.Post("/login", app.LoginSubmit)
	r.Post("/logout", app.Logout)

	// Everything else requires a session
	r.Group(func(g chi.Router) {
		g.Use(app.RequireUser)

		g.Get("/", app.Dashboard())

		// Students
		g.Get("/students", app.Students())
		g.Get("/students.csv", app.StudentsCSV)
		g.Get("/students/new", app.StudentNewForm())
		g.Post("/students", app.StudentCreate)
		g.Get("/students/{nid}", app.StudentPage())
		g.Post("/students/{nid}/entitlements", app.EntitlementSave)
		g.Post("/students/{nid}/assessment", app.AssessmentRenew)
		g.Post("/students/{nid}/payments", app.PaymentCreate)
		g.Post("/students/{nid}/delete", app.StudentDelete)

		// Schedule
		g.Get("/schedule", app.Schedule())
		g.Get("/schedule/export.xlsx", app.ScheduleExport)
		g.Post("/schedule/create-batch", app.CreateBatch)
		g.Post("/schedule/{id}/status", app.UpdateStatus)

		// Holidays
		g.Get("/holidays", app.Holidays())
		g.Post("/holidays", app.HolidayAdd)
		g.Post("/holidays/delete", app.HolidayDelete)

		// Appointment QR + check-in
		g.Get("/appointments/{id}/qr.png", app.AppointmentQR)
		g.Get("/checkin/{id}", app.CheckinForm())
		g.Post("/checkin/{id}", app.CheckinConfirm)
	})

	return r
}
