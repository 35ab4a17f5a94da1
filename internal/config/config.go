package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server        ServerConfig
	Face          FaceConfig
	Database      DatabaseConfig
	Matching      MatchingConfig
	Attendance    AttendanceConfig
	Notifications NotificationsConfig
	Defaults      DefaultsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type FaceConfig struct {
	URL string // base URL of the face embedding server (e.g., http://localhost:8000)
	Dim int    // embedding dimension, defaults to 512
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	HRImportDSN  string // optional MySQL DSN of a legacy HR database for bulk enrollment
}

type MatchingConfig struct {
	Threshold float64 // minimum cosine similarity to accept a match
	Workers   int     // parallel workers for candidate scoring (0 = NumCPU)
}

type AttendanceConfig struct {
	Timezone          string        // IANA timezone name used for day scoping (default UTC)
	AutoExitThreshold time.Duration // gap after which a re-detection closes the day
}

type NotificationsConfig struct {
	SMTPAddr string // host:port of the SMTP relay; empty disables email
	From     string
}

// DefaultsConfig holds fallback values shipped with the binary.
type DefaultsConfig struct {
	OfficeTiming struct {
		LoginTime  string `yaml:"login_time"`
		LogoutTime string `yaml:"logout_time"`
	} `yaml:"office_timing"`
	Notifications map[string]string `yaml:"notifications"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration.
// Returns the default value if the env var is unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var defaults DefaultsConfig
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Host: envString("SERVER_HOST", "0.0.0.0"),
			Port: envInt("SERVER_PORT", 8080),
		},
		Face: FaceConfig{
			URL: os.Getenv("FACE_URL"),
			Dim: envInt("FACE_EMBEDDING_DIM", 512),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HRImportDSN:  os.Getenv("HR_IMPORT_DSN"),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.6),
			Workers:   envInt("MATCH_WORKERS", 0),
		},
		Attendance: AttendanceConfig{
			Timezone:          envString("ATTENDANCE_TIMEZONE", "UTC"),
			AutoExitThreshold: envDuration("AUTO_EXIT_THRESHOLD", 2*time.Hour),
		},
		Notifications: NotificationsConfig{
			SMTPAddr: os.Getenv("SMTP_ADDR"),
			From:     envString("SMTP_FROM", "attendance@localhost"),
		},
		Defaults: defaults,
	}
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}
