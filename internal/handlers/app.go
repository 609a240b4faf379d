package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/auth"
	"github.com/kentra/backoffice/internal/services"
	"github.com/kentra/backoffice/internal/views"
)

// App carries what the handlers share. Storage is reached through db.Conn().
type App struct {
	Log       *zap.Logger
	Sessions  *auth.Sessions
	Scheduler *services.Scheduler
	Centers   services.Centers
	Loc       *time.Location

	ExpiryWindowDays int
	CookieSecure     bool
	// BaseURL prefixes links encoded in QR codes; empty uses the request host.
	BaseURL string

	base     *template.Template
	validate *validator.Validate
}

func NewApp(a App) *App {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	if a.Loc == nil {
		a.Loc = time.UTC
	}
	if a.ExpiryWindowDays <= 0 {
		a.ExpiryWindowDays = 30
	}
	a.base = views.Base()
	a.validate = validator.New()
	return &a
}

// page is embedded in every view model.
type page struct {
	Title string
	Flash *Flash
	User  *auth.Claims
}

func (a *App) page(r *http.Request, title string) page {
	return page{Title: title, Flash: MakeFlash(r, "", ""), User: CurrentUser(r)}
}

func (a *App) view(name string) *template.Template {
	return views.Page(a.base, name)
}

func (a *App) render(w http.ResponseWriter, view *template.Template, name string, vm any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.ExecuteTemplate(w, name, vm); err != nil {
		a.Log.Error("render", zap.String("template", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *App) dbError(w http.ResponseWriter, err error) {
	a.Log.Error("db error", zap.Error(err))
	http.Error(w, "db error", http.StatusInternalServerError)
}

func (a *App) today() time.Time {
	return services.Today(a.Loc)
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
