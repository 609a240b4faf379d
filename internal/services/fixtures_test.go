package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "services.db") + "?_foreign_keys=on",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func seedStudent(t *testing.T, gdb *gorm.DB, nid string, expiry *time.Time) models.Student {
	t.Helper()
	st := models.Student{NationalID: nid, Center: "Giannitsa", FirstName: "Νίκος", LastName: "Παπαδόπουλος"}
	if expiry != nil {
		d := DateValue(*expiry)
		st.AssessmentExpiry = &d
	}
	require.NoError(t, gdb.Create(&st).Error)
	return st
}

func seedService(t *testing.T, gdb *gorm.DB, name string) models.Service {
	t.Helper()
	svc := models.Service{Name: name}
	require.NoError(t, gdb.Create(&svc).Error)
	return svc
}

func entitle(t *testing.T, gdb *gorm.DB, st models.Student, svc models.Service, total int) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.Entitlement{StudentID: st.ID, ServiceID: svc.ID, TotalSessions: total}).Error)
}

func book(t *testing.T, gdb *gorm.DB, st models.Student, svc models.Service, day time.Time, status string) models.Appointment {
	t.Helper()
	a := models.Appointment{
		StudentID: st.ID,
		ServiceID: svc.ID,
		Center:    st.Center,
		Day:       DateValue(day),
		StartTime: "10:00",
		Status:    status,
	}
	require.NoError(t, gdb.Create(&a).Error)
	return a
}

func countAppointments(t *testing.T, gdb *gorm.DB, st models.Student) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&models.Appointment{}).Where("student_id = ?", st.ID).Count(&n).Error)
	return n
}
