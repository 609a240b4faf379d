package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kentra/backoffice/internal/auth"
	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/handlers"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

const nid = "01018012345"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "web.db") + "?_foreign_keys=on",
	}
	require.NoError(t, db.Init(cfg, zap.NewNop()))
	require.NoError(t, db.SeedUsers(db.Conn(), "admin-pass", "demo-pass"))
	require.NoError(t, db.SeedServices(db.Conn(), db.DefaultServices))

	app := handlers.NewApp(handlers.App{
		Sessions:  auth.NewSessions("test-secret-0123456789", time.Hour),
		Scheduler: services.NewScheduler(db.Conn(), services.SchedulerConfig{Rules: services.DefaultWalkRules}, zap.NewNop()),
		Centers: services.NewCenters([]config.CenterConfig{
			{Code: "Giannitsa", Label: "Γιαννιτσά"},
			{Code: "KryaVrisi", Label: "Κρύα Βρύση", Aliases: []string{"Krya Vrisi"}},
		}),
	})
	return Router(app)
}

func do(t *testing.T, h http.Handler, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"admin-pass"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u
}

func serviceID(t *testing.T, name string) uint {
	t.Helper()
	var svc models.Service
	require.NoError(t, db.Conn().Where("name = ?", name).First(&svc).Error)
	return svc.ID
}

// createStudent adds a student with 10 speech therapy sessions through the form.
func createStudent(t *testing.T, h http.Handler, c *http.Cookie, expiry string) uint {
	t.Helper()
	svc := serviceID(t, "Λογοθεραπεία")
	rec := do(t, h, http.MethodPost, "/students", url.Values{
		"national_id":       {nid},
		"first_name":        {"Νίκος"},
		"last_name":         {"Παπαδόπουλος"},
		"center":            {"Krya Vrisi"},
		"parent_phone":      {"6912 345 678"},
		"assessment_expiry": {expiry},
		"sessions_" + strconv.Itoa(int(svc)): {"10"},
	}, c)
	u := location(t, rec)
	require.Equal(t, "/students/"+nid, u.Path)
	return svc
}

func TestRouterHealthz(t *testing.T) {
	h := newRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUser(t *testing.T) {
	h := newRouter(t)

	u := location(t, do(t, h, http.MethodGet, "/students", nil, nil))
	assert.Equal(t, "/login", u.Path)
	assert.Equal(t, "/students", u.Query().Get("next"))

	bad := &http.Cookie{Name: "access_token", Value: "garbage"}
	u = location(t, do(t, h, http.MethodGet, "/students", nil, bad))
	assert.Equal(t, "/login", u.Path)

	u = location(t, do(t, h, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"nope"}}, nil))
	assert.Equal(t, "bad_login", u.Query().Get("error"))

	c := login(t, h)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/students", nil, c).Code)
}

func TestCreateBatch(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)
	svc := createStudent(t, h, c, "")

	u := location(t, do(t, h, http.MethodPost, "/schedule/create-batch", url.Values{
		"student_nid":   {nid},
		"service_id":    {strconv.Itoa(int(svc))},
		"start_day":     {"03/03/2025"},
		"count":         {"4"},
		"skip_holidays": {"on"},
	}, c))
	assert.Equal(t, "/schedule", u.Path)
	assert.Equal(t, "created", u.Query().Get("ok"))
	assert.Equal(t, "KryaVrisi", u.Query().Get("center"))
	assert.Equal(t, "2025-03-03", u.Query().Get("week"))

	var appts []models.Appointment
	require.NoError(t, db.Conn().Order("day").Find(&appts).Error)
	require.Len(t, appts, 4)
	for i, a := range appts {
		assert.Equal(t, time.Date(2025, 3, 3+7*i, 0, 0, 0, 0, time.UTC), services.DateOf(a.Day))
		assert.Equal(t, "09:00", a.StartTime)
		assert.Equal(t, "KryaVrisi", a.Center)
	}

	// the week page and its export render the new rows
	page := do(t, h, http.MethodGet, "/schedule?center=KryaVrisi&week=2025-03-05", nil, c)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Παπαδόπουλος Νίκος")

	x := do(t, h, http.MethodGet, "/schedule/export.xlsx?center=KryaVrisi&week=2025-03-03", nil, c)
	require.Equal(t, http.StatusOK, x.Code)
	assert.True(t, strings.HasPrefix(x.Body.String(), "PK"))
}

func TestCreateBatch_PartialAtExpiry(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)
	svc := createStudent(t, h, c, "2025-03-13")

	u := location(t, do(t, h, http.MethodPost, "/schedule/create-batch", url.Values{
		"student_nid": {nid},
		"service_id":  {strconv.Itoa(int(svc))},
		"start_day":   {"2025-03-03"},
		"start_time":  {"17:00"},
		"count":       {"4"},
	}, c))
	assert.Equal(t, "partial", u.Query().Get("ok"))
	assert.Equal(t, "2", u.Query().Get("created"))
}

func TestCreateBatch_Errors(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)
	svc := strconv.Itoa(int(createStudent(t, h, c, "2025-06-30")))
	other := strconv.Itoa(int(serviceID(t, "Εργοθεραπεία")))

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"unknown student", url.Values{"student_nid": {"999"}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"1"}}, "not_found"},
		{"bad service id", url.Values{"student_nid": {nid}, "service_id": {"x"}, "start_day": {"2025-03-03"}, "count": {"1"}}, "not_found"},
		{"bad date", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"31/02/2025"}, "count": {"1"}}, "bad_date"},
		{"bad time", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "start_time": {"9am"}, "count": {"1"}}, "bad_time"},
		{"after expiry", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-07-07"}, "count": {"1"}}, "expiry_limit"},
		{"not assigned", url.Values{"student_nid": {nid}, "service_id": {other}, "start_day": {"2025-03-03"}, "count": {"1"}}, "service_not_assigned"},
		{"zero count", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"0"}}, "no_sessions"},
		{"sunday", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-02"}, "count": {"2"}}, "rest_day"},
		{"count not a number", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"abc"}}, "bad_count"},
		{"count missing", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}}, "bad_count"},
		{"count negative", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"-3"}}, "bad_count"},
		{"count decimal", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"4.0"}}, "bad_count"},
		{"duration negative", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"2"}, "duration_min": {"-20"}}, "bad_duration"},
		{"duration not a number", url.Values{"student_nid": {nid}, "service_id": {svc}, "start_day": {"2025-03-03"}, "count": {"2"}, "duration_min": {"45'"}}, "bad_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := location(t, do(t, h, http.MethodPost, "/schedule/create-batch", tt.form, c))
			assert.Equal(t, "/schedule", u.Path)
			assert.Equal(t, tt.want, u.Query().Get("error"))
		})
	}

	var n int64
	require.NoError(t, db.Conn().Model(&models.Appointment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateStatus(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)
	svc := createStudent(t, h, c, "")
	location(t, do(t, h, http.MethodPost, "/schedule/create-batch", url.Values{
		"student_nid": {nid}, "service_id": {strconv.Itoa(int(svc))}, "start_day": {"2025-03-03"}, "count": {"1"},
	}, c))

	var appt models.Appointment
	require.NoError(t, db.Conn().First(&appt).Error)
	path := "/schedule/" + strconv.Itoa(int(appt.ID)) + "/status"

	u := location(t, do(t, h, http.MethodPost, path, url.Values{"status": {"canceled"}, "next": {"/students/" + nid}}, c))
	assert.Equal(t, "/students/"+nid, u.Path)
	assert.Equal(t, "status", u.Query().Get("ok"))

	u = location(t, do(t, h, http.MethodPost, path, url.Values{"status": {"lost"}, "next": {"//evil.example"}}, c))
	assert.Equal(t, "/schedule", u.Path)
	assert.Equal(t, "bad_status", u.Query().Get("error"))

	u = location(t, do(t, h, http.MethodPost, "/schedule/9999/status", url.Values{"status": {"completed"}}, c))
	assert.Equal(t, "bad_status", u.Query().Get("error"))

	require.NoError(t, db.Conn().First(&appt, appt.ID).Error)
	assert.Equal(t, models.StatusCanceled, appt.Status)

	// check-in through the QR flow completes it
	id := strconv.Itoa(int(appt.ID))
	qr := do(t, h, http.MethodGet, "/appointments/"+id+"/qr.png", nil, c)
	require.Equal(t, http.StatusOK, qr.Code)
	assert.Equal(t, "image/png", qr.Header().Get("Content-Type"))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/checkin/"+id, nil, c).Code)
	u = location(t, do(t, h, http.MethodPost, "/checkin/"+id, url.Values{}, c))
	assert.Equal(t, "checked_in", u.Query().Get("ok"))
	require.NoError(t, db.Conn().First(&appt, appt.ID).Error)
	assert.Equal(t, models.StatusCompleted, appt.Status)
}

func TestStudentLifecycle(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)
	svc := createStudent(t, h, c, "")

	var st models.Student
	require.NoError(t, db.Conn().Where("national_id = ?", nid).First(&st).Error)
	assert.Equal(t, "+306912345678", st.ParentPhone)

	// duplicate national id
	u := location(t, do(t, h, http.MethodPost, "/students", url.Values{
		"national_id": {nid}, "first_name": {"Α"}, "last_name": {"Β"},
	}, c))
	assert.Equal(t, "exists", u.Query().Get("error"))

	u = location(t, do(t, h, http.MethodPost, "/students", url.Values{
		"national_id": {"12"}, "first_name": {"Α"}, "last_name": {"Β"},
	}, c))
	assert.Equal(t, "invalid", u.Query().Get("error"))

	u = location(t, do(t, h, http.MethodPost, "/students", url.Values{
		"national_id": {"02029012345"}, "first_name": {"Α"}, "last_name": {"Β"}, "parent_phone": {"call me"},
	}, c))
	assert.Equal(t, "bad_phone", u.Query().Get("error"))

	base := "/students/" + nid
	u = location(t, do(t, h, http.MethodPost, base+"/payments", url.Values{"amount": {"12,50"}, "paid_on": {"2025-03-01"}}, c))
	assert.Equal(t, "paid", u.Query().Get("ok"))
	u = location(t, do(t, h, http.MethodPost, base+"/payments", url.Values{"amount": {"-3"}}, c))
	assert.Equal(t, "bad_amount", u.Query().Get("error"))

	u = location(t, do(t, h, http.MethodPost, base+"/entitlements", url.Values{
		"service_id": {strconv.Itoa(int(svc))}, "total_sessions": {"3"},
	}, c))
	assert.Equal(t, "saved", u.Query().Get("ok"))
	var ent models.Entitlement
	require.NoError(t, db.Conn().Where("service_id = ?", svc).First(&ent).Error)
	assert.Equal(t, 3, ent.TotalSessions)

	u = location(t, do(t, h, http.MethodPost, base+"/assessment", url.Values{"assessment_expiry": {"31/12/2025"}}, c))
	assert.Equal(t, "renewed", u.Query().Get("ok"))

	location(t, do(t, h, http.MethodPost, "/schedule/create-batch", url.Values{
		"student_nid": {nid}, "service_id": {strconv.Itoa(int(svc))}, "start_day": {"2025-03-03"}, "count": {"2"},
	}, c))

	for _, path := range []string{"/", "/students", "/students/new", base, "/holidays"} {
		rec := do(t, h, http.MethodGet, path, nil, c)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	page := do(t, h, http.MethodGet, base, nil, c).Body.String()
	assert.Contains(t, page, "12,50")
	assert.Contains(t, page, "31/12/2025")

	csv := do(t, h, http.MethodGet, "/students.csv", nil, c)
	require.Equal(t, http.StatusOK, csv.Code)
	assert.Contains(t, csv.Body.String(), nid)
	assert.Contains(t, csv.Body.String(), "Κρύα Βρύση")

	u = location(t, do(t, h, http.MethodPost, base+"/delete", url.Values{}, c))
	assert.Equal(t, "deleted", u.Query().Get("ok"))
	for _, m := range []any{&models.Student{}, &models.Appointment{}, &models.Payment{}, &models.Entitlement{}} {
		var n int64
		require.NoError(t, db.Conn().Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}

func TestHolidays(t *testing.T) {
	h := newRouter(t)
	c := login(t, h)

	form := url.Values{"center": {"Giannitsa"}, "day": {"2025-03-03"}, "note": {"Καθαρά Δευτέρα"}}
	u := location(t, do(t, h, http.MethodPost, "/holidays", form, c))
	assert.Equal(t, "saved", u.Query().Get("ok"))
	assert.Equal(t, "Giannitsa", u.Query().Get("center"))

	u = location(t, do(t, h, http.MethodPost, "/holidays", form, c))
	assert.Equal(t, "exists", u.Query().Get("error"))

	var hol models.Holiday
	require.NoError(t, db.Conn().First(&hol).Error)
	page := do(t, h, http.MethodGet, "/holidays?center=Giannitsa", nil, c)
	assert.Contains(t, page.Body.String(), "Καθαρά Δευτέρα")

	u = location(t, do(t, h, http.MethodPost, "/holidays/delete", url.Values{
		"holiday_id": {strconv.Itoa(int(hol.ID))}, "center": {"Giannitsa"},
	}, c))
	assert.Equal(t, "deleted", u.Query().Get("ok"))

	var n int64
	require.NoError(t, db.Conn().Model(&models.Holiday{}).Count(&n).Error)
	assert.Zero(t, n)
}
