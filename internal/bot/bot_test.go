package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/events"
	"github.com/kentra/backoffice/internal/models"
	"github.com/kentra/backoffice/internal/services"
)

type captured struct {
	path string
	body sendMessageRequest
}

func fakeAPI(t *testing.T, reply string) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, captured{path: r.URL.Path, body: body})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSendMessage(t *testing.T) {
	srv, got := fakeAPI(t, `{"ok":true}`)
	c := NewClient("123:abc").WithAPIBase(srv.URL + "/")

	require.NoError(t, c.SendMessage(context.Background(), -100, "γεια"))
	require.Len(t, *got, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", (*got)[0].path)
	assert.Equal(t, int64(-100), (*got)[0].body.ChatID)
	assert.Equal(t, "γεια", (*got)[0].body.Text)
}

func TestSendMessage_APIError(t *testing.T) {
	srv, _ := fakeAPI(t, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	c := NewClient("t").WithAPIBase(srv.URL)

	err := c.SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

type recorder struct {
	mu     sync.Mutex
	chatID int64
	texts  []string
}

func (r *recorder) sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func (r *recorder) SendMessage(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatID = chatID
	r.texts = append(r.texts, text)
	return nil
}

func newDigester(t *testing.T) (*Digester, *recorder) {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "bot.db") + "?_foreign_keys=on",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	rec := &recorder{}
	return &Digester{
		DB:      gdb,
		Sender:  rec,
		ChatID:  42,
		Centers: services.NewCenters([]config.CenterConfig{{Code: "Giannitsa", Label: "Γιαννιτσά"}}),
		Loc:     time.UTC,
		Window:  30,
		Log:     zap.NewNop(),
	}, rec
}

func seedAppointment(t *testing.T, gdb *gorm.DB, day time.Time) models.Appointment {
	t.Helper()
	st := models.Student{NationalID: "01018012345", Center: "Giannitsa", FirstName: "Νίκος", LastName: "Παπαδόπουλος"}
	require.NoError(t, gdb.Create(&st).Error)
	svc := models.Service{Name: "Λογοθεραπεία"}
	require.NoError(t, gdb.Create(&svc).Error)
	appt := models.Appointment{
		StudentID: st.ID, ServiceID: svc.ID, Center: st.Center,
		Day: services.DateValue(day), StartTime: "10:00", Status: models.StatusScheduled,
	}
	require.NoError(t, gdb.Omit("Student", "Service").Create(&appt).Error)
	return appt
}

func TestDigesterRun(t *testing.T) {
	d, rec := newDigester(t)
	today := services.Today(time.UTC)
	seedAppointment(t, d.DB, today)

	require.NoError(t, d.Run(context.Background()))
	require.Len(t, rec.texts, 1)
	assert.Equal(t, int64(42), rec.chatID)
	assert.Contains(t, rec.texts[0], services.DisplayDate(today))
	assert.Contains(t, rec.texts[0], "Παπαδόπουλος Νίκος")
}

func TestNotifyCanceled(t *testing.T) {
	d, rec := newDigester(t)
	appt := seedAppointment(t, d.DB, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))

	require.NoError(t, d.NotifyCanceled(context.Background(), appt))
	require.Len(t, rec.texts, 1)
	assert.Equal(t, "Ακύρωση: Παπαδόπουλος Νίκος, 03/03/2025 10:00 (Γιαννιτσά)", rec.texts[0])
}

func TestStart_BadSchedule(t *testing.T) {
	d, _ := newDigester(t)
	_, err := d.Start(config.TelegramConfig{DigestCron: "not a schedule"})
	require.Error(t, err)
}

func TestWatch_OnlyCancellations(t *testing.T) {
	d, rec := newDigester(t)
	appt := seedAppointment(t, d.DB, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))

	var logged []string
	events.OnStatusChange = func(_ models.Appointment, _, to string) { logged = append(logged, to) }
	t.Cleanup(func() { events.OnStatusChange = nil })
	d.Watch()

	events.OnStatusChange(appt, models.StatusScheduled, models.StatusCompleted)
	events.OnStatusChange(appt, models.StatusCompleted, models.StatusCanceled)

	assert.Equal(t, []string{models.StatusCompleted, models.StatusCanceled}, logged)
	assert.Eventually(t, func() bool { return rec.sent() == 1 }, 2*time.Second, 10*time.Millisecond)
}
