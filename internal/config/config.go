package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	SMTP     SMTPConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Monitor  MonitorConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	Storage     string // postgres | memory
	FrontendURL string

	// SeedAdminEmail registers an administrator in memory storage, which has
	// no other way to receive alerts.
	SeedAdminEmail string
	SeedAdminName  string
}

// SMTPConfig holds mail transport configuration. An empty Host selects the
// no-op transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	// SendTimeout bounds one send including retries. It is independent of the
	// caller's deadline so an exchange in flight is never abandoned.
	SendTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

// MonitorConfig holds attendance monitor settings. Thresholds are defaults;
// agency_settings rows override them per agency.
type MonitorConfig struct {
	Enabled                     bool
	LateThresholdMinutes        int
	OvertimeThresholdMinutes    int
	PreparationThresholdMinutes int
	LateStartInterval           time.Duration
	OvertimeInterval            time.Duration
	ActiveHoursStart            int
	ActiveHoursEnd              int
	Timezone                    string
	JobTimeout                  time.Duration
	CandidateTimeout            time.Duration
	SendMarkerTTL               time.Duration
}

// Location resolves the monitor timezone, falling back to UTC.
func (m MonitorConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "preparator"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage:     getEnv("APP_STORAGE", "postgres"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		SeedAdminEmail: getEnv("MEMORY_ADMIN_EMAIL", ""),
		SeedAdminName:  getEnv("MEMORY_ADMIN_NAME", "Admin"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	smtpTimeout, err := getEnvDuration("SMTP_SEND_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@preparator.local"),
		FromName: getEnv("SMTP_FROM_NAME", "Preparator Monitor"),

		SendTimeout: smtpTimeout,
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	config.Kafka = KafkaConfig{
		Brokers:    getEnvSlice("KAFKA_BROKERS"),
		AlertTopic: getEnv("KAFKA_ALERT_TOPIC", "preparator.alerts"),
	}

	monitor, err := loadMonitor()
	if err != nil {
		return nil, err
	}
	config.Monitor = monitor

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadMonitor() (MonitorConfig, error) {
	var (
		m   MonitorConfig
		err error
	)

	if m.Enabled, err = getEnvBool("MONITOR_ENABLED", true); err != nil {
		return m, err
	}
	if m.LateThresholdMinutes, err = getEnvInt("MONITOR_LATE_THRESHOLD_MINUTES", 15); err != nil {
		return m, err
	}
	if m.OvertimeThresholdMinutes, err = getEnvInt("MONITOR_OVERTIME_THRESHOLD_MINUTES", 45); err != nil {
		return m, err
	}
	if m.PreparationThresholdMinutes, err = getEnvInt("MONITOR_PREPARATION_THRESHOLD_MINUTES", 30); err != nil {
		return m, err
	}
	if m.LateStartInterval, err = getEnvDuration("MONITOR_LATE_START_INTERVAL", 5*time.Minute); err != nil {
		return m, err
	}
	if m.OvertimeInterval, err = getEnvDuration("MONITOR_OVERTIME_INTERVAL", 15*time.Minute); err != nil {
		return m, err
	}
	if m.ActiveHoursStart, err = getEnvInt("MONITOR_ACTIVE_HOURS_START", 6); err != nil {
		return m, err
	}
	if m.ActiveHoursEnd, err = getEnvInt("MONITOR_ACTIVE_HOURS_END", 22); err != nil {
		return m, err
	}
	if m.JobTimeout, err = getEnvDuration("MONITOR_JOB_TIMEOUT", 2*time.Minute); err != nil {
		return m, err
	}
	if m.CandidateTimeout, err = getEnvDuration("MONITOR_CANDIDATE_TIMEOUT", 30*time.Second); err != nil {
		return m, err
	}
	if m.SendMarkerTTL, err = getEnvDuration("MONITOR_SEND_MARKER_TTL", 10*time.Minute); err != nil {
		return m, err
	}
	m.Timezone = getEnv("MONITOR_TIMEZONE", "Europe/Paris")

	return m, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Storage != "postgres" && c.App.Storage != "memory" {
		return fmt.Errorf("APP_STORAGE must be 'postgres' or 'memory'")
	}
	if c.App.Storage == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.SMTP.SendTimeout <= 0 {
		return fmt.Errorf("SMTP_SEND_TIMEOUT must be positive")
	}
	return c.Monitor.Validate()
}

// Validate checks the monitor thresholds and active-hours window.
func (m MonitorConfig) Validate() error {
	if m.LateThresholdMinutes <= 0 || m.OvertimeThresholdMinutes <= 0 || m.PreparationThresholdMinutes <= 0 {
		return fmt.Errorf("monitor thresholds must be positive")
	}
	if m.LateStartInterval <= 0 || m.OvertimeInterval <= 0 {
		return fmt.Errorf("monitor intervals must be positive")
	}
	if m.ActiveHoursStart < 0 || m.ActiveHoursEnd > 24 || m.ActiveHoursStart >= m.ActiveHoursEnd {
		return fmt.Errorf("invalid active hours window %d-%d", m.ActiveHoursStart, m.ActiveHoursEnd)
	}
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return fmt.Errorf("invalid MONITOR_TIMEZONE %q: %w", m.Timezone, err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
