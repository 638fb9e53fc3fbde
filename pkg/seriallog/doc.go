// Package seriallog provides an embeddable acquisition and logging pipeline
// for 12-bit instruments streaming two-byte frames over a serial line.
//
// Decoded samples are grouped into fixed-size batches. Every batch is
// persisted to an hourly rotated text log (serial_log_<YYYY-MM-DD_HH>.txt)
// and, while export is enabled, mirrored to an export file. Persistence
// runs on a dedicated goroutine so the ingestion path never waits on disk.
//
// # Basic Usage
//
//	cfg := seriallog.Config{
//	    LogDir: "/var/lib/seriallog",
//	}
//
//	l, err := seriallog.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// feed bytes read from the device
//	l.SubmitBytes(chunk)
//
//	// drains every queued batch and closes the files
//	if err := l.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// Instead of calling SubmitBytes, a [ByteSource] can be attached with
// [WithSource]; Start then polls it on Config.PollInterval and [Logger.Done]
// is closed when the source reaches end of stream.
//
// # Controls
//
// [Logger.SetPaused] stops ingestion: bytes received while paused are
// dropped. [Logger.SetExportEnabled] toggles the export file. Batches keep
// the export decision taken when they were queued, and the export file is
// closed once export is off and every such batch has been written.
//
// # Events and Collaborators
//
// Implement [EventHandler] (embedding [BaseEventHandler]) to observe state
// changes, persisted batches, write errors and rate reports. [BatchSink]
// and [RateReporter] collaborators receive every sealed batch and every
// rate report on the ingestion path.
//
// # Plugins
//
// Optional behavior such as log retention or live config reload is
// provided by plugins:
//
//	import "github.com/bft-labs/seriallog/plugins/logretention"
//	import "github.com/bft-labs/seriallog/plugins/configwatcher"
//
//	l, err := seriallog.New(cfg,
//	    logretention.WithLogRetention(logretention.DefaultConfig()),
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
//
// # Lifecycle States
//
// A Logger can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping] or [StateCrashed]. Use [Logger.Status]
// to query the current state and [Logger.Snapshot] for counters.
package seriallog
