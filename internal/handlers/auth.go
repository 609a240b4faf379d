package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/auth"
	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
)

const sessionCookieName = "access_token"

type ctxKey struct{}

// CurrentUser returns the session claims set by RequireUser, or nil.
func CurrentUser(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(ctxKey{}).(*auth.Claims)
	return c
}

// RequireUser is middleware: blocks access unless a valid session cookie is present.
func (a *App) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookieName)
		if err != nil || c.Value == "" {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		claims, err := a.Sessions.Parse(c.Value)
		if err != nil {
			a.clearSession(w)
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginVM struct {
	page
	Next string
}

// GET /login
func (a *App) LoginForm() http.HandlerFunc {
	view := a.view("login.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, view, "login.tmpl", loginVM{
			page: a.page(r, "Σύνδεση"),
			Next: r.URL.Query().Get("next"),
		})
	}
}

// POST /login
func (a *App) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := localPath(r.FormValue("next"), "/")

	var u models.User
	err := db.Conn().Where("username = ? AND active = ?", username, true).First(&u).Error
	if err != nil || !auth.CheckPassword(password, u.PasswordHash) {
		a.Log.Info("login rejected", zap.String("username", username))
		http.Redirect(w, r, withFlash("/login", "error", "bad_login", "next", next), http.StatusSeeOther)
		return
	}

	token, err := a.Sessions.Issue(u.Username, u.Role)
	if err != nil {
		a.Log.Error("issue session", zap.Error(err))
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(a.Sessions.TTL()),
	})
	a.Log.Info("login", zap.String("username", u.Username), zap.String("role", u.Role))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// POST /logout
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	a.clearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *App) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.CookieSecure,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
