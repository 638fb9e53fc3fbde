package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/seriallog/internal/adapters/fs"
	"github.com/bft-labs/seriallog/internal/app"
	"github.com/bft-labs/seriallog/internal/domain"
)

// Config holds CLI configuration for seriallog.
type Config struct {
	// Device is a file or device path, "-" for stdin or "sim".
	Device     string
	LogDir     string
	ExportFile string
	StateDir   string

	BatchSize     int
	ReadSize      int
	PollInterval  time.Duration
	RateInterval  time.Duration
	WorkerTick    time.Duration
	QueuePolicy   string
	QueueCapacity int

	Export bool
	Paused bool

	MetricsAddr string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	RetentionHighMB   int
	RetentionLowMB    int
	RetentionInterval time.Duration

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogDir:            ".",
		BatchSize:         app.DefaultBatchSize,
		ReadSize:          4096,
		PollInterval:      app.DefaultPollInterval,
		RateInterval:      app.DefaultRateInterval,
		WorkerTick:        app.DefaultIdleTick,
		QueuePolicy:       app.PolicyUnbounded.String(),
		QueueCapacity:     256,
		MQTTTopic:         "seriallog",
		MQTTClientID:      "seriallog",
		RetentionInterval: 5 * time.Minute,
		LogLevel:          "info",
		ExportFile:        "", // Derived from LogDir during Validate
		StateDir:          "", // Derived from LogDir during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Device == "" {
		return invalid("device is required (path, \"-\" for stdin, or \"sim\")")
	}
	if c.LogDir == "" {
		c.LogDir = "."
	}
	if c.ExportFile == "" {
		c.ExportFile = filepath.Join(c.LogDir, fs.DefaultExportFileName)
	}
	if c.StateDir == "" {
		c.StateDir = c.LogDir
	}

	if c.BatchSize <= 0 {
		return invalid("batch size must be positive")
	}
	if c.ReadSize <= 0 {
		return invalid("read size must be positive")
	}
	if c.PollInterval <= 0 {
		return invalid("poll interval must be positive")
	}
	if c.RateInterval <= 0 {
		return invalid("rate interval must be positive")
	}
	if c.WorkerTick <= 0 {
		return invalid("worker tick must be positive")
	}

	policy, err := app.ParseQueuePolicy(c.QueuePolicy)
	if err != nil {
		return err
	}
	c.QueuePolicy = policy.String()
	if policy != app.PolicyUnbounded && c.QueueCapacity <= 0 {
		return invalid("queue capacity must be positive for policy " + c.QueuePolicy)
	}

	if c.RetentionHighMB < 0 || c.RetentionLowMB < 0 {
		return invalid("retention watermarks must not be negative")
	}
	if c.RetentionHighMB > 0 {
		if c.RetentionLowMB == 0 {
			c.RetentionLowMB = c.RetentionHighMB * 8 / 10
		}
		if c.RetentionLowMB >= c.RetentionHighMB {
			return invalid("retention low watermark must be below the high watermark")
		}
		if c.RetentionInterval <= 0 {
			return invalid("retention interval must be positive")
		}
	}

	c.MQTTTopic = strings.TrimSuffix(c.MQTTTopic, "/")
	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.MQTTPassword != "" {
		c.MQTTPassword = "*****"
	}
	return c
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
