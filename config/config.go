package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Sweep    SweepConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// SweepConfig holds the sweep intervals and tuning knobs. Defaults match the
// production schedule; everything is overridable from the environment so that
// pilots and tests can run the sweeps at second granularity.
type SweepConfig struct {
	BreachInterval     time.Duration // SLA_BREACH_INTERVAL_SECONDS (default 300)
	EscalationInterval time.Duration // ESCALATION_INTERVAL_SECONDS (default 900)
	ReconcileInterval  time.Duration // RECONCILE_INTERVAL_SECONDS (default 3600)
	LivenessInterval   time.Duration // LIVENESS_INTERVAL_SECONDS (default 60)
	DigestHourUTC      int           // DIGEST_HOUR_UTC (default 7)

	// Grace period between the SLA due date passing and the escalation sweep
	// picking the case up.
	EscalationGrace time.Duration // ESCALATION_GRACE_MINUTES (default 60)

	// Soft timeout for one sweep pass. On expiry the remainder of the
	// candidate set is abandoned and re-selected on the next tick.
	SweepTimeout time.Duration // SWEEP_TIMEOUT_SECONDS (default 120)

	// Test-only override of the SLA response window in minutes (0 = disabled).
	SLAOverrideMinutes int // TEST_SLA_OVERRIDE_MINUTES

	// Batch ceiling for one sweep selection query.
	BatchSize int // SWEEP_BATCH_SIZE (default 500)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "caseflow"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "caseflow"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("PORT", getEnv("SERVER_PORT", "8080")),
		},
		Sweep: SweepConfig{
			BreachInterval:     getEnvSeconds("SLA_BREACH_INTERVAL_SECONDS", 300),
			EscalationInterval: getEnvSeconds("ESCALATION_INTERVAL_SECONDS", 900),
			ReconcileInterval:  getEnvSeconds("RECONCILE_INTERVAL_SECONDS", 3600),
			LivenessInterval:   getEnvSeconds("LIVENESS_INTERVAL_SECONDS", 60),
			DigestHourUTC:      getEnvInt("DIGEST_HOUR_UTC", 7),
			EscalationGrace:    time.Duration(getEnvInt("ESCALATION_GRACE_MINUTES", 60)) * time.Minute,
			SweepTimeout:       getEnvSeconds("SWEEP_TIMEOUT_SECONDS", 120),
			SLAOverrideMinutes: getEnvInt("TEST_SLA_OVERRIDE_MINUTES", 0),
			BatchSize:          getEnvInt("SWEEP_BATCH_SIZE", 500),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSeconds reads an integer number of seconds as a time.Duration
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
