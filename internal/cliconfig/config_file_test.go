package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Device:       "/dev/ttyUSB0",
				LogDir:       "/data",
				PollInterval: "15ms",
				BatchSize:    2500,
				Export:       &trueVal,
			},
			changed: map[string]bool{},
			expected: Config{
				Device:       "/dev/ttyUSB0",
				LogDir:       "/data",
				PollInterval: 15 * time.Millisecond,
				BatchSize:    2500,
				Export:       true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Device: "/dev/file",
				LogDir: "/file/logs",
			},
			changed: map[string]bool{"log-dir": true},
			initial: Config{LogDir: "/flag/logs"},
			expected: Config{
				Device: "/dev/file",
				LogDir: "/flag/logs", // unchanged because flag was set
			},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{RateInterval: "every second"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "explicit false overrides true",
			fileConfig: FileConfig{Paused: &falseVal},
			changed:    map[string]bool{},
			initial:    Config{Paused: true},
			expected:   Config{Paused: false},
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				Device:            "sim",
				LogDir:            "/logs",
				ExportFile:        "/exports/x.txt",
				StateDir:          "/state",
				BatchSize:         64,
				ReadSize:          512,
				PollInterval:      "5ms",
				RateInterval:      "2s",
				WorkerTick:        "250ms",
				QueuePolicy:       "drop-oldest",
				QueueCapacity:     16,
				Export:            &trueVal,
				Paused:            &falseVal,
				MetricsAddr:       ":9464",
				MQTTBroker:        "tcp://broker:1883",
				MQTTTopic:         "lab/adc0",
				MQTTClientID:      "adc0",
				MQTTUsername:      "user",
				MQTTPassword:      "secret",
				RetentionHighMB:   500,
				RetentionLowMB:    400,
				RetentionInterval: "1m",
				LogLevel:          "warn",
			},
			changed: map[string]bool{},
			expected: Config{
				Device:            "sim",
				LogDir:            "/logs",
				ExportFile:        "/exports/x.txt",
				StateDir:          "/state",
				BatchSize:         64,
				ReadSize:          512,
				PollInterval:      5 * time.Millisecond,
				RateInterval:      2 * time.Second,
				WorkerTick:        250 * time.Millisecond,
				QueuePolicy:       "drop-oldest",
				QueueCapacity:     16,
				Export:            true,
				Paused:            false,
				MetricsAddr:       ":9464",
				MQTTBroker:        "tcp://broker:1883",
				MQTTTopic:         "lab/adc0",
				MQTTClientID:      "adc0",
				MQTTUsername:      "user",
				MQTTPassword:      "secret",
				RetentionHighMB:   500,
				RetentionLowMB:    400,
				RetentionInterval: time.Minute,
				LogLevel:          "warn",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() =\n%+v\nwant\n%+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
device = "/dev/ttyACM0"
log_dir = "/data/adc"
poll_interval = "10ms"
batch_size = 5000
queue_policy = "block"
export = true
paused = false
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Device != "/dev/ttyACM0" {
		t.Errorf("Device = %v, want /dev/ttyACM0", fc.Device)
	}
	if fc.LogDir != "/data/adc" {
		t.Errorf("LogDir = %v, want /data/adc", fc.LogDir)
	}
	if fc.PollInterval != "10ms" {
		t.Errorf("PollInterval = %v, want 10ms", fc.PollInterval)
	}
	if fc.BatchSize != 5000 {
		t.Errorf("BatchSize = %v, want 5000", fc.BatchSize)
	}
	if fc.QueuePolicy != "block" {
		t.Errorf("QueuePolicy = %v, want block", fc.QueuePolicy)
	}
	if fc.Export == nil || *fc.Export != true {
		t.Errorf("Export = %v, want true", fc.Export)
	}
	if fc.Paused == nil || *fc.Paused != false {
		t.Errorf("Paused = %v, want explicit false", fc.Paused)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
device = "/dev/ttyACM0"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".seriallog") {
		t.Errorf("DefaultConfigPath() = %v, should contain .seriallog", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
