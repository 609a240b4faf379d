package db

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kentra/backoffice/internal/config"
	"github.com/kentra/backoffice/internal/logger"
	"github.com/kentra/backoffice/internal/models"
)

var conn *gorm.DB

// Init opens the configured database, migrates it and keeps the handle for Conn.
func Init(cfg config.DatabaseConfig, log *zap.Logger) error {
	gdb, err := Open(cfg, log)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	conn = gdb
	log.Info("database ready", zap.String("driver", cfg.Driver))
	return nil
}

// Open connects without migrating.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	level := gormlogger.Warn
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(log, level),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.Driver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrapf(err, "ping %s", cfg.Driver)
	}
	return gdb, nil
}

// Migrate creates or updates the schema. Students go first so the cascade
// constraints declared on their associations land on the child tables.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Student{},
		&models.Entitlement{},
		&models.Appointment{},
		&models.Payment{},
		&models.Holiday{},
	); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}

	// Composite indexes that GORM doesn't auto-create from struct tags.
	if err := gdb.Exec("CREATE INDEX IF NOT EXISTS idx_appt_status_day ON appointments(status, day)").Error; err != nil {
		return errors.Wrap(err, "create idx_appt_status_day")
	}
	if err := gdb.Exec("CREATE INDEX IF NOT EXISTS idx_student_expiry ON students(assessment_expiry)").Error; err != nil {
		return errors.Wrap(err, "create idx_student_expiry")
	}
	return nil
}

func Conn() *gorm.DB {
	return conn
}

// SetConn swaps the shared handle; tests use it to point handlers at a temp database.
func SetConn(gdb *gorm.DB) {
	conn = gdb
}
