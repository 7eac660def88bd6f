// Package config handles configuration for the gateway and the capture
// loop: defaults, an optional JSON (with comments) or YAML file, command-line
// flags and finally environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/camvault/internal/capture"
	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/dbx"
	"github.com/dmitrijs2005/camvault/internal/events"
	"github.com/dmitrijs2005/camvault/internal/server/services"
)

// Config holds runtime settings for camvault.
type Config struct {
	HTTPAddr       string
	DatabaseDriver string
	DatabaseDSN    string

	AdminUsername string
	AdminPassword string
	MaxUsers      int

	ArchiveDir      string
	LiveDir         string
	ArchiveCapacity int
	PageSize        int
	MaxPage         int

	FastPeriod   time.Duration
	ArchiveEvery int

	CameraCommand string
	CameraArgs    []string
	CameraTimeout time.Duration

	CaptureRetries         uint64
	RetryDelay             time.Duration
	MaxRetryDelay          time.Duration
	OnDeviceFailure        string
	MaxConsecutiveFailures int
	CaptureEnabled         bool

	CORSOrigins     []string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	MQTTBroker string
	MQTTTopic  string
	MQTTQoS    byte
}

// LoadDefaults populates Config with the values used on a Raspberry Pi
// camera node.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.DatabaseDriver = string(dbx.DialectSQLite)
	c.DatabaseDSN = "camvault.db"
	c.MaxUsers = 8
	c.ArchiveDir = "images"
	c.LiveDir = "live"
	c.ArchiveCapacity = 2016
	c.PageSize = 36
	c.MaxPage = 56
	c.FastPeriod = 10 * time.Second
	c.ArchiveEvery = 30
	c.CameraCommand = "rpicam-jpeg"
	c.CameraArgs = append([]string(nil), capture.DefaultCameraArgs...)
	c.CameraTimeout = 15 * time.Second
	c.CaptureRetries = 2
	c.RetryDelay = 500 * time.Millisecond
	c.MaxRetryDelay = 5 * time.Second
	c.OnDeviceFailure = capture.FailureSkip.String()
	c.MaxConsecutiveFailures = 30
	c.CORSOrigins = []string{"*"}
	c.ShutdownTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.MQTTTopic = "camvault/frames"
}

// LoadConfig builds a Config from os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

// Load applies defaults, then the file named by -c/-config, then flags, then
// environment variables, and validates the result.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	applyEnv(cfg, lookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	envAdminUsername = "ADMIN_USERNAME"
	envAdminPassword = "ADMIN_PASSWORD"
	envDatabaseDSN   = "CAMVAULT_DATABASE_DSN"
)

func applyEnv(c *Config, lookupEnv func(string) (string, bool)) {
	if v, ok := lookupEnv(envAdminUsername); ok {
		c.AdminUsername = v
	}
	if v, ok := lookupEnv(envAdminPassword); ok {
		c.AdminPassword = v
	}
	if v, ok := lookupEnv(envDatabaseDSN); ok && v != "" {
		c.DatabaseDSN = v
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// Validate rejects inconsistent settings. Admin credentials are checked
// separately by EnsureAdmin since the capture process does not need them.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return invalid("http address is empty")
	}
	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		return invalid("%v", err)
	}
	if c.DatabaseDSN == "" {
		return invalid("database dsn is empty")
	}
	if c.MaxUsers < 1 {
		return invalid("max users must be at least 1, got %d", c.MaxUsers)
	}
	if c.ArchiveDir == "" || c.LiveDir == "" {
		return invalid("archive and live directories are required")
	}
	if c.ArchiveCapacity < 1 || c.PageSize < 1 || c.MaxPage < 1 {
		return invalid("capacity, page size and max page must be positive")
	}
	if c.MaxPage*c.PageSize < c.ArchiveCapacity {
		return invalid("max page %d * page size %d does not cover capacity %d", c.MaxPage, c.PageSize, c.ArchiveCapacity)
	}
	if c.FastPeriod <= 0 {
		return invalid("fast period must be positive, got %s", c.FastPeriod)
	}
	if c.ArchiveEvery < 1 {
		return invalid("archive every must be at least 1, got %d", c.ArchiveEvery)
	}
	if c.CaptureEnabled && c.CameraCommand == "" {
		return invalid("camera command is empty")
	}
	if c.CameraTimeout < 0 || c.RetryDelay < 0 || c.MaxRetryDelay < 0 || c.ShutdownTimeout < 0 {
		return invalid("durations must not be negative")
	}
	if _, err := capture.ParseFailurePolicy(c.OnDeviceFailure); err != nil {
		return invalid("%v", err)
	}
	if c.MaxConsecutiveFailures < 0 {
		return invalid("max consecutive failures must not be negative")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("unknown log format %q", c.LogFormat)
	}
	if c.MQTTQoS > 2 {
		return invalid("mqtt qos must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	return nil
}

func (c *Config) Dialect() dbx.Dialect {
	d, _ := dbx.ParseDialect(c.DatabaseDriver)
	return d
}

func (c *Config) AuthPolicy() services.AuthPolicy {
	return services.AuthPolicy{MaxUsers: c.MaxUsers, AdminName: c.AdminUsername}
}

func (c *Config) MediaPolicy() services.MediaPolicy {
	return services.MediaPolicy{
		ArchiveDir: c.ArchiveDir,
		LiveDir:    c.LiveDir,
		PageSize:   c.PageSize,
		MaxPage:    c.MaxPage,
	}
}

func (c *Config) CaptureConfig() capture.Config {
	policy, _ := capture.ParseFailurePolicy(c.OnDeviceFailure)
	return capture.Config{
		FastPeriod:             c.FastPeriod,
		ArchiveEvery:           c.ArchiveEvery,
		Retries:                c.CaptureRetries,
		RetryDelay:             c.RetryDelay,
		MaxRetryDelay:          c.MaxRetryDelay,
		OnFailure:              policy,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
	}
}

func (c *Config) Camera() *capture.CommandCamera {
	return &capture.CommandCamera{
		Command: c.CameraCommand,
		Args:    append([]string(nil), c.CameraArgs...),
		Timeout: c.CameraTimeout,
	}
}

// MQTTConfig reports whether event publishing is enabled.
func (c *Config) MQTTConfig() (events.MQTTConfig, bool) {
	return events.MQTTConfig{Broker: c.MQTTBroker, Topic: c.MQTTTopic, QoS: c.MQTTQoS}, c.MQTTBroker != ""
}
