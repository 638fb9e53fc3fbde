package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Device            string `toml:"device"`
	LogDir            string `toml:"log_dir"`
	ExportFile        string `toml:"export_file"`
	StateDir          string `toml:"state_dir"`
	BatchSize         int    `toml:"batch_size"`
	ReadSize          int    `toml:"read_size"`
	PollInterval      string `toml:"poll_interval"`
	RateInterval      string `toml:"rate_interval"`
	WorkerTick        string `toml:"worker_tick"`
	QueuePolicy       string `toml:"queue_policy"`
	QueueCapacity     int    `toml:"queue_capacity"`
	Export            *bool  `toml:"export"`
	Paused            *bool  `toml:"paused"`
	MetricsAddr       string `toml:"metrics_addr"`
	MQTTBroker        string `toml:"mqtt_broker"`
	MQTTTopic         string `toml:"mqtt_topic"`
	MQTTClientID      string `toml:"mqtt_client_id"`
	MQTTUsername      string `toml:"mqtt_username"`
	MQTTPassword      string `toml:"mqtt_password"`
	RetentionHighMB   int    `toml:"retention_high_mb"`
	RetentionLowMB    int    `toml:"retention_low_mb"`
	RetentionInterval string `toml:"retention_interval"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.seriallog/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".seriallog", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", fc.Device, &cfg.Device)
	s.setString("log-dir", fc.LogDir, &cfg.LogDir)
	s.setString("export-file", fc.ExportFile, &cfg.ExportFile)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("queue-policy", fc.QueuePolicy, &cfg.QueuePolicy)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("mqtt-username", fc.MQTTUsername, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTTPassword, &cfg.MQTTPassword)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("rate-interval", fc.RateInterval, &cfg.RateInterval); err != nil {
		return err
	}
	if err := s.setDuration("worker-tick", fc.WorkerTick, &cfg.WorkerTick); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", fc.RetentionInterval, &cfg.RetentionInterval); err != nil {
		return err
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("read-size", fc.ReadSize, &cfg.ReadSize)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setInt("retention-high", fc.RetentionHighMB, &cfg.RetentionHighMB)
	s.setInt("retention-low", fc.RetentionLowMB, &cfg.RetentionLowMB)

	s.setBool("export", fc.Export, &cfg.Export)
	s.setBool("paused", fc.Paused, &cfg.Paused)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
