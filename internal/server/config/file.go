package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/camvault/internal/flagx"
)

// Duration accepts "10s"-style strings or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x)
	case int:
		d.Duration = time.Duration(x)
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = p
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// FileConfig is the on-disk shape of Config. Keys absent from the file keep
// the value they had before the file was read.
type FileConfig struct {
	HTTPAddr       string `json:"http_addr" yaml:"http_addr"`
	DatabaseDriver string `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN    string `json:"database_dsn" yaml:"database_dsn"`

	AdminUsername string `json:"admin_username" yaml:"admin_username"`
	AdminPassword string `json:"admin_password" yaml:"admin_password"`
	MaxUsers      int    `json:"max_users" yaml:"max_users"`

	ArchiveDir      string `json:"archive_dir" yaml:"archive_dir"`
	LiveDir         string `json:"live_dir" yaml:"live_dir"`
	ArchiveCapacity int    `json:"archive_capacity" yaml:"archive_capacity"`
	PageSize        int    `json:"page_size" yaml:"page_size"`
	MaxPage         int    `json:"max_page" yaml:"max_page"`

	FastPeriod   Duration `json:"fast_period" yaml:"fast_period"`
	ArchiveEvery int      `json:"archive_every" yaml:"archive_every"`

	CameraCommand string   `json:"camera_command" yaml:"camera_command"`
	CameraArgs    []string `json:"camera_args" yaml:"camera_args"`
	CameraTimeout Duration `json:"camera_timeout" yaml:"camera_timeout"`

	CaptureRetries         uint64   `json:"capture_retries" yaml:"capture_retries"`
	RetryDelay             Duration `json:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay          Duration `json:"max_retry_delay" yaml:"max_retry_delay"`
	OnDeviceFailure        string   `json:"on_device_failure" yaml:"on_device_failure"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	CaptureEnabled         bool     `json:"capture_enabled" yaml:"capture_enabled"`

	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	MQTTBroker string `json:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTTopic  string `json:"mqtt_topic" yaml:"mqtt_topic"`
	MQTTQoS    byte   `json:"mqtt_qos" yaml:"mqtt_qos"`
}

// parseFile overlays the file named by -c/-config, if any. The format is
// YAML for .yaml/.yml and JSON with comments otherwise.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := toFile(config)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}

	fromFile(config, fc)
	return nil
}

func toFile(c *Config) *FileConfig {
	return &FileConfig{
		HTTPAddr:               c.HTTPAddr,
		DatabaseDriver:         c.DatabaseDriver,
		DatabaseDSN:            c.DatabaseDSN,
		AdminUsername:          c.AdminUsername,
		AdminPassword:          c.AdminPassword,
		MaxUsers:               c.MaxUsers,
		ArchiveDir:             c.ArchiveDir,
		LiveDir:                c.LiveDir,
		ArchiveCapacity:        c.ArchiveCapacity,
		PageSize:               c.PageSize,
		MaxPage:                c.MaxPage,
		FastPeriod:             Duration{c.FastPeriod},
		ArchiveEvery:           c.ArchiveEvery,
		CameraCommand:          c.CameraCommand,
		CameraArgs:             c.CameraArgs,
		CameraTimeout:          Duration{c.CameraTimeout},
		CaptureRetries:         c.CaptureRetries,
		RetryDelay:             Duration{c.RetryDelay},
		MaxRetryDelay:          Duration{c.MaxRetryDelay},
		OnDeviceFailure:        c.OnDeviceFailure,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
		CaptureEnabled:         c.CaptureEnabled,
		CORSOrigins:            c.CORSOrigins,
		ShutdownTimeout:        Duration{c.ShutdownTimeout},
		LogLevel:               c.LogLevel,
		LogFormat:              c.LogFormat,
		MQTTBroker:             c.MQTTBroker,
		MQTTTopic:              c.MQTTTopic,
		MQTTQoS:                c.MQTTQoS,
	}
}

func fromFile(c *Config, f *FileConfig) {
	c.HTTPAddr = f.HTTPAddr
	c.DatabaseDriver = f.DatabaseDriver
	c.DatabaseDSN = f.DatabaseDSN
	c.AdminUsername = f.AdminUsername
	c.AdminPassword = f.AdminPassword
	c.MaxUsers = f.MaxUsers
	c.ArchiveDir = f.ArchiveDir
	c.LiveDir = f.LiveDir
	c.ArchiveCapacity = f.ArchiveCapacity
	c.PageSize = f.PageSize
	c.MaxPage = f.MaxPage
	c.FastPeriod = f.FastPeriod.Duration
	c.ArchiveEvery = f.ArchiveEvery
	c.CameraCommand = f.CameraCommand
	c.CameraArgs = f.CameraArgs
	c.CameraTimeout = f.CameraTimeout.Duration
	c.CaptureRetries = f.CaptureRetries
	c.RetryDelay = f.RetryDelay.Duration
	c.MaxRetryDelay = f.MaxRetryDelay.Duration
	c.OnDeviceFailure = f.OnDeviceFailure
	c.MaxConsecutiveFailures = f.MaxConsecutiveFailures
	c.CaptureEnabled = f.CaptureEnabled
	c.CORSOrigins = f.CORSOrigins
	c.ShutdownTimeout = f.ShutdownTimeout.Duration
	c.LogLevel = f.LogLevel
	c.LogFormat = f.LogFormat
	c.MQTTBroker = f.MQTTBroker
	c.MQTTTopic = f.MQTTTopic
	c.MQTTQoS = f.MQTTQoS
}
