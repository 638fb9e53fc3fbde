package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SERIALLOG_"

// ApplyEnvConfig applies SERIALLOG_* environment variables to cfg. Values
// override the config file but never a flag set on the command line.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("device", env("DEVICE"), &cfg.Device)
	s.setString("log-dir", env("LOG_DIR"), &cfg.LogDir)
	s.setString("export-file", env("EXPORT_FILE"), &cfg.ExportFile)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("queue-policy", env("QUEUE_POLICY"), &cfg.QueuePolicy)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", env("MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("rate-interval", env("RATE_INTERVAL"), &cfg.RateInterval); err != nil {
		return err
	}
	if err := s.setDuration("worker-tick", env("WORKER_TICK"), &cfg.WorkerTick); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", env("RETENTION_INTERVAL"), &cfg.RetentionInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("batch-size", env("BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("read-size", env("READ_SIZE"), &cfg.ReadSize); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", env("QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("retention-high", env("RETENTION_HIGH_MB"), &cfg.RetentionHighMB); err != nil {
		return err
	}
	if err := s.setIntFromString("retention-low", env("RETENTION_LOW_MB"), &cfg.RetentionLowMB); err != nil {
		return err
	}

	s.setBoolFromString("export", env("EXPORT"), &cfg.Export)
	s.setBoolFromString("paused", env("PAUSED"), &cfg.Paused)
	return nil
}
