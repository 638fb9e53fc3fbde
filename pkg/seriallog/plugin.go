package seriallog

import (
	"context"
	"fmt"

	"github.com/bft-labs/seriallog/pkg/log"
)

// Plugin extends a Logger with optional behavior. Plugins are initialized
// in registration order on Start and shut down in reverse order on Stop.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called during Start. Returning an error aborts Start
	// and leaves the Logger in StateCrashed. ctx is cancelled on Stop.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called during Stop. Errors are logged and do not prevent
	// the remaining plugins from shutting down.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	LogDir     string
	ExportFile string
	StateDir   string
	Logger     log.Logger

	// Control drives the running Logger.
	Control Control
}

// Control is the command surface plugins may use.
type Control interface {
	SetPaused(paused bool)
	Paused() bool
	SetExportEnabled(enabled bool)
	ExportEnabled() bool

	// CurrentLogFile returns the hour bucket file being written, or "".
	CurrentLogFile() string
}

// BasePlugin implements Plugin with no-ops. Embed it and override what the
// plugin needs.
type BasePlugin struct{}

func (BasePlugin) Name() string                                  { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }

// safeInitialize runs p.Initialize and turns a panic into an error.
func safeInitialize(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during initialization: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

// safeShutdown runs p.Shutdown and turns a panic into an error.
func safeShutdown(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during shutdown: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
