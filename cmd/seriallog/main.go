package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/seriallog/internal/cliconfig"
)

const helpDescription = `
Acquire samples from a 12-bit instrument streaming two-byte frames over a
serial line and log them to hourly rotated text files.

Highlights:
  - Resynchronizes on the frame marker bit, including across read boundaries.
  - Writes on a dedicated goroutine so acquisition never waits on disk.
  - Export toggle mirrors batches to export_data.txt; SIGUSR1 flips it.
  - SIGUSR2 pauses and resumes acquisition.
  - Optional Prometheus metrics, MQTT publishing and remote control.
`

var exampleUsage = strings.TrimSpace(`
  seriallog --device /dev/ttyUSB0 --log-dir /var/lib/seriallog
  seriallog --device capture.bin --export
  seriallog --device sim --metrics-addr :9100 --mqtt-broker tcp://localhost:1883
  cat capture.bin | seriallog --device -
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "seriallog",
		Short:         "Acquire and log samples from a serial instrument",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// precedence: flags > env > file > defaults
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			watchFile := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watchFile = cfgFile
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			cliconfig.SetLogLevel(cfg.LogLevel)
			log.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			return run(cmd.Context(), cfg, runOptions{
				logger:     log,
				configFile: watchFile,
				version:    getVersion(),
			})
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.seriallog/config.toml)")
	root.Flags().StringVar(&cfg.Device, "device", cfg.Device, `serial device or capture file; "-" reads stdin, "sim" runs the built-in simulator`)
	root.Flags().StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for hourly serial_log_<YYYY-MM-DD_HH>.txt files")
	root.Flags().StringVar(&cfg.ExportFile, "export-file", cfg.ExportFile, "export file (defaults to <log-dir>/export_data.txt)")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (defaults to log-dir)")

	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "samples per batch")
	root.Flags().IntVar(&cfg.ReadSize, "read-size", cfg.ReadSize, "maximum bytes per device read")
	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "device poll interval")
	root.Flags().DurationVar(&cfg.RateInterval, "rate-interval", cfg.RateInterval, "samples-per-second reporting interval")
	root.Flags().DurationVar(&cfg.WorkerTick, "worker-tick", cfg.WorkerTick, "idle interval at which the writer re-checks the export file")
	root.Flags().StringVar(&cfg.QueuePolicy, "queue-policy", cfg.QueuePolicy, "work queue policy: unbounded, block or drop-oldest")
	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "work queue capacity for bounded policies")

	root.Flags().BoolVar(&cfg.Export, "export", cfg.Export, "start with export enabled")
	root.Flags().BoolVar(&cfg.Paused, "paused", cfg.Paused, "start paused")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9100)")

	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL (e.g. tcp://localhost:1883); empty disables MQTT")
	root.Flags().StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client ID")
	root.Flags().StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT username")
	root.Flags().StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	if err := root.Flags().MarkHidden("mqtt-password"); err != nil {
		log.Info().Err(err).Msg("failed to hide mqtt-password flag")
	}

	root.Flags().IntVar(&cfg.RetentionHighMB, "retention-high", cfg.RetentionHighMB, "delete oldest logs above this many MiB (0 disables)")
	root.Flags().IntVar(&cfg.RetentionLowMB, "retention-low", cfg.RetentionLowMB, "delete down to this many MiB (defaults to 80% of high)")
	root.Flags().DurationVar(&cfg.RetentionInterval, "retention-interval", cfg.RetentionInterval, "log retention check interval")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("seriallog")
		os.Exit(1)
	}
}
