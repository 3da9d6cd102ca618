package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Auth       AuthConfig       `yaml:"auth"`
	Web        WebConfig        `yaml:"web"`
}

type DatabaseConfig struct {
	URL          string `yaml:"-"`              // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections
}

type EmbeddingConfig struct {
	URL          string `yaml:"url"`            // face embedding server
	Model        string `yaml:"model"`          // model name stored next to enrolled embeddings
	MaxImageSize int    `yaml:"max_image_size"` // longest side sent to the server, 0 = send as-is
}

// AttendanceConfig holds the check-in decision policy.
type AttendanceConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	TZOffsetHours       int           `yaml:"tz_offset_hours"`
	DefaultHistoryLimit int           `yaml:"default_history_limit"`
	MaxHistoryLimit     int           `yaml:"max_history_limit"`
	MinCheckInInterval  time.Duration `yaml:"min_check_in_interval"`
	CheckInRatePerMin   int           `yaml:"check_in_rate_per_minute"`
}

// Location returns the fixed zone check-in timestamps are recorded in.
// The offset never follows DST.
func (c *AttendanceConfig) Location() *time.Location {
	if c.TZOffsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TZOffsetHours), c.TZOffsetHours*3600)
}

// Validate rejects a policy the verifier cannot apply as written.
func (c *AttendanceConfig) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("ATTENDANCE_SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.MaxHistoryLimit > 0 && c.DefaultHistoryLimit > c.MaxHistoryLimit {
		return fmt.Errorf("ATTENDANCE_DEFAULT_HISTORY_LIMIT (%d) exceeds ATTENDANCE_MAX_HISTORY_LIMIT (%d)",
			c.DefaultHistoryLimit, c.MaxHistoryLimit)
	}
	return nil
}

type AuthConfig struct {
	JWTSecret string        `yaml:"-"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"-"` // WEB_ALLOWED_ORIGINS, comma-separated
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envSignedInt is envInt without the sign restriction (timezone offsets).
func envSignedInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration described by the embedded defaults.yaml.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// Embedded file, so this only fails on a broken build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Embedding: EmbeddingConfig{
			URL:          envString("EMBEDDING_URL", d.Embedding.URL),
			Model:        envString("EMBEDDING_MODEL", d.Embedding.Model),
			MaxImageSize: envInt("EMBEDDING_MAX_IMAGE_SIZE", d.Embedding.MaxImageSize),
		},
		Attendance: AttendanceConfig{
			SimilarityThreshold: envFloat("ATTENDANCE_SIMILARITY_THRESHOLD", d.Attendance.SimilarityThreshold),
			TZOffsetHours:       envSignedInt("ATTENDANCE_TZ_OFFSET_HOURS", d.Attendance.TZOffsetHours),
			DefaultHistoryLimit: envInt("ATTENDANCE_DEFAULT_HISTORY_LIMIT", d.Attendance.DefaultHistoryLimit),
			MaxHistoryLimit:     envInt("ATTENDANCE_MAX_HISTORY_LIMIT", d.Attendance.MaxHistoryLimit),
			MinCheckInInterval:  envDuration("ATTENDANCE_MIN_CHECK_IN_INTERVAL", d.Attendance.MinCheckInInterval),
			CheckInRatePerMin:   envInt("ATTENDANCE_CHECK_IN_RATE_PER_MINUTE", d.Attendance.CheckInRatePerMin),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Issuer:    envString("AUTH_JWT_ISSUER", d.Auth.Issuer),
			TokenTTL:  envDuration("AUTH_TOKEN_TTL", d.Auth.TokenTTL),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
