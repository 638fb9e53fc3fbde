package cliconfig

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BatchSize != 5000 {
		t.Errorf("BatchSize = %v, want 5000", cfg.BatchSize)
	}
	if cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval = %v, want 10ms", cfg.PollInterval)
	}
	if cfg.RateInterval != time.Second {
		t.Errorf("RateInterval = %v, want 1s", cfg.RateInterval)
	}
	if cfg.QueuePolicy != "unbounded" {
		t.Errorf("QueuePolicy = %v, want unbounded", cfg.QueuePolicy)
	}
	if cfg.LogDir != "." {
		t.Errorf("LogDir = %v, want .", cfg.LogDir)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Device = "/dev/ttyACM0"
	cfg.LogDir = "/var/lib/seriallog"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"stdin device", func(c *Config) { c.Device = "-" }, false},
		{"missing device", func(c *Config) { c.Device = "" }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"negative poll", func(c *Config) { c.PollInterval = -1 }, true},
		{"zero rate interval", func(c *Config) { c.RateInterval = 0 }, true},
		{"zero worker tick", func(c *Config) { c.WorkerTick = 0 }, true},
		{"zero read size", func(c *Config) { c.ReadSize = 0 }, true},
		{"unknown queue policy", func(c *Config) { c.QueuePolicy = "lifo" }, true},
		{"block without capacity", func(c *Config) {
			c.QueuePolicy = "block"
			c.QueueCapacity = 0
		}, true},
		{"drop-oldest with capacity", func(c *Config) {
			c.QueuePolicy = "drop-oldest"
			c.QueueCapacity = 8
		}, false},
		{"retention low above high", func(c *Config) {
			c.RetentionHighMB = 100
			c.RetentionLowMB = 200
		}, true},
		{"negative retention", func(c *Config) { c.RetentionLowMB = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c1 := validConfig()
	if err := c1.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if want := filepath.Join("/var/lib/seriallog", "export_data.txt"); c1.ExportFile != want {
		t.Errorf("ExportFile = %v, want %v", c1.ExportFile, want)
	}
	if c1.StateDir != "/var/lib/seriallog" {
		t.Errorf("StateDir = %v, want log dir", c1.StateDir)
	}

	// explicit overrides survive
	c2 := validConfig()
	c2.ExportFile = "/exports/run1.txt"
	c2.StateDir = "/state"
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c2.ExportFile != "/exports/run1.txt" || c2.StateDir != "/state" {
		t.Errorf("overrides lost: %+v", c2)
	}

	// low watermark defaults to 80% of high
	c3 := validConfig()
	c3.RetentionHighMB = 1000
	if err := c3.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c3.RetentionLowMB != 800 {
		t.Errorf("RetentionLowMB = %v, want 800", c3.RetentionLowMB)
	}

	// policy names are normalised
	c4 := validConfig()
	c4.QueuePolicy = "DROP_OLDEST"
	c4.MQTTTopic = "lab/adc/"
	if err := c4.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c4.QueuePolicy != "drop-oldest" {
		t.Errorf("QueuePolicy = %v, want drop-oldest", c4.QueuePolicy)
	}
	if c4.MQTTTopic != "lab/adc" {
		t.Errorf("MQTTTopic = %v, want lab/adc", c4.MQTTTopic)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := validConfig()
	cfg.MQTTPassword = "hunter2"
	if got := cfg.Redacted().MQTTPassword; got != "*****" {
		t.Errorf("Redacted().MQTTPassword = %q", got)
	}
	if cfg.MQTTPassword != "hunter2" {
		t.Error("Redacted modified the receiver")
	}
}
