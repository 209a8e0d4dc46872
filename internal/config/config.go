package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Port        string
	Origins     []string
	Environment string
	JWTSecret   string
	LogLevel    string
	Database    DatabaseConfig
	Services    ServicesConfig
	Uploads     UploadConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// ServicesConfig holds the upstream collaborators this service calls over HTTP.
type ServicesConfig struct {
	UserServiceURL        string
	AuthServiceURL        string
	AuditServiceURL       string
	AppointmentServiceURL string
	AuthUserPath          string
	AuthPatientPath       string
	AppointmentByIDPath   string
	Timeout               time.Duration

	// Operational escape hatches. When false the existence check is
	// skipped and every id is reported as present.
	ValidatePatient bool
	ValidateDoctor  bool
}

// UploadConfig holds limits and housekeeping settings for stored files.
type UploadConfig struct {
	Dir           string
	MaxFileSize   int64
	MaxFiles      int
	SweepInterval time.Duration
	OrphanMaxAge  time.Duration
}

// IsProduction reports whether raw error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medical_records"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			dbConfig.Host, dbConfig.Username, dbConfig.Password, dbConfig.Name, dbConfig.Port, getEnv("DB_SSLMODE", "disable"))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", dbConfig.Driver)
	}
	if url := getEnv("DATABASE_URL", ""); url != "" {
		dbConfig.DSN = url
	}

	timeout, err := getDuration("UPSTREAM_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	servicesConfig := ServicesConfig{
		UserServiceURL:        strings.TrimRight(getEnv("USER_SERVICE_URL", "http://localhost:3003"), "/"),
		AuthServiceURL:        strings.TrimRight(getEnv("AUTH_SERVICE_URL", "http://localhost:3002"), "/"),
		AuditServiceURL:       strings.TrimRight(getEnv("AUDIT_SERVICE_URL", "http://localhost:3006"), "/"),
		AppointmentServiceURL: strings.TrimRight(getEnv("APPOINTMENT_SERVICE_URL", "http://localhost:3004"), "/"),
		AuthUserPath:          getEnv("AUTH_USER_PATH", "/api/v1/users/{id}"),
		AuthPatientPath:       getEnv("AUTH_PATIENT_PATH", "/api/v1/patients/{id}"),
		AppointmentByIDPath:   getEnv("APPOINTMENT_BY_ID_PATH", "/api/v1/appointments/by-id/{id}"),
		Timeout:               timeout,
		ValidatePatient:       getEnv("VALIDATE_PATIENT", "true") != "false",
		ValidateDoctor:        getEnv("VALIDATE_DOCTOR", "true") != "false",
	}

	maxFileSize, err := strconv.ParseInt(getEnv("UPLOAD_MAX_FILE_SIZE", strconv.Itoa(10<<20)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_FILE_SIZE: %w", err)
	}
	maxFiles, err := strconv.Atoi(getEnv("UPLOAD_MAX_FILES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_FILES: %w", err)
	}
	sweepInterval, err := getDuration("ORPHAN_SWEEP_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	orphanMaxAge, err := getDuration("ORPHAN_MAX_AGE", time.Hour)
	if err != nil {
		return nil, err
	}

	uploadConfig := UploadConfig{
		Dir:           getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize:   maxFileSize,
		MaxFiles:      maxFiles,
		SweepInterval: sweepInterval,
		OrphanMaxAge:  orphanMaxAge,
	}

	environment := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))

	return &Config{
		Port:        getEnv("PORT", "3005"),
		Origins:     splitList(getEnv("ORIGIN", "http://localhost:4200")),
		Environment: environment,
		JWTSecret:   getEnv("JWT_SECRET", "default_jwt_secret"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database:    dbConfig,
		Services:    servicesConfig,
		Uploads:     uploadConfig,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("30s", "1h") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
