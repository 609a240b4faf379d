package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Centers  []CenterConfig `mapstructure:"centers"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig selects the GORM dialector. For sqlite the DSN is a file
// path plus query options; for postgres a libpq connection string.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
	LogQueries      bool   `mapstructure:"log_queries"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	AdminPassword string        `mapstructure:"admin_password"`
	DemoPassword  string        `mapstructure:"demo_password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScheduleConfig struct {
	Timezone         string   `mapstructure:"timezone"`
	RestDays         []string `mapstructure:"rest_days"`
	IntervalDays     int      `mapstructure:"interval_days"`
	DefaultStart     string   `mapstructure:"default_start"`
	DefaultDuration  int      `mapstructure:"default_duration"`
	ExpiryWindowDays int      `mapstructure:"expiry_window_days"`
}

type CenterConfig struct {
	Code    string   `mapstructure:"code"`
	Label   string   `mapstructure:"label"`
	Aliases []string `mapstructure:"aliases"`
}

type TelegramConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Token      string `mapstructure:"token"`
	ChatID     int64  `mapstructure:"chat_id"`
	DigestCron string `mapstructure:"digest_cron"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration with the precedence env > file > defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "backoffice.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	v.SetDefault("db.max_open_conns", 1)
	v.SetDefault("db.max_idle_conns", 1)
	v.SetDefault("db.conn_max_lifetime", 0)
	v.SetDefault("db.log_queries", false)

	v.SetDefault("auth.jwt_secret", "change-me-please-0123456789")
	v.SetDefault("auth.session_ttl", "1h")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("auth.demo_password", "demo123")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("schedule.timezone", "Europe/Athens")
	v.SetDefault("schedule.rest_days", []string{"sunday"})
	v.SetDefault("schedule.interval_days", 7)
	v.SetDefault("schedule.default_start", "09:00")
	v.SetDefault("schedule.default_duration", 45)
	v.SetDefault("schedule.expiry_window_days", 30)

	v.SetDefault("centers", []map[string]any{
		{"code": "Giannitsa", "label": "Γιαννιτσά"},
		{"code": "KryaVrisi", "label": "Κρύα Βρύση", "aliases": []string{"Krya Vrisi"}},
	})

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.digest_cron", "0 7 * * 1-6")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown db.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: db.dsn is empty")
	}
	if len(c.Centers) == 0 {
		return fmt.Errorf("config: at least one center is required")
	}
	if c.Schedule.IntervalDays <= 0 {
		return fmt.Errorf("config: schedule.interval_days must be positive")
	}
	if _, err := c.Schedule.RestWeekdays(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.Schedule.DefaultStart); err != nil {
		return fmt.Errorf("config: schedule.default_start %q is not HH:MM", c.Schedule.DefaultStart)
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("config: telegram.enabled requires token and chat_id")
	}
	return nil
}

// RestWeekdays resolves schedule.rest_days to weekdays.
func (s ScheduleConfig) RestWeekdays() ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(s.RestDays))
	for _, name := range s.RestDays {
		d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("config: unknown rest day %q", name)
		}
		out = append(out, d)
	}
	return out, nil
}

// Location falls back to UTC when the zone database is missing.
func (s ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
