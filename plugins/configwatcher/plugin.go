// Package configwatcher reloads the control flags of a running seriallog
// instance from its TOML config file. When the file changes, new values of
// `export` and `paused` are applied through the logger's control surface,
// the same way the export and pause buttons would.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/seriallog/internal/cliconfig"
	"github.com/bft-labs/seriallog/pkg/log"
	"github.com/bft-labs/seriallog/pkg/seriallog"
)

// Plugin watches a config file and applies control flag changes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	control  seriallog.Control
	logger   log.Logger
	last     flags
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	// Default: ~/.seriallog/config.toml
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// flags holds the control values last read from the file. A nil field
// means the key was absent.
type flags struct {
	export *bool
	paused *bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the current file values and starts watching. The
// values present at startup are not applied again; they were already
// merged into the configuration the logger started with.
func (p *Plugin) Initialize(ctx context.Context, cfg seriallog.PluginConfig) error {
	p.mu.Lock()
	p.control = cfg.Control
	p.logger = log.With(cfg.Logger, log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.path == "" || p.control == nil {
		p.logger.Warn("config watcher disabled: no config file configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// watch the directory so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	if f, err := p.read(); err == nil {
		p.mu.Lock()
		p.last = f
		p.mu.Unlock()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the flags whose file value changed since the last read.
func (p *Plugin) reload() {
	f, err := p.read()
	if err != nil {
		p.logger.Warn("config reload failed, keeping current flags", log.Err(err))
		return
	}

	p.mu.Lock()
	prev := p.last
	// an absent key keeps the last seen value, so a half-written file
	// does not count as a change
	p.last = flags{export: keep(prev.export, f.export), paused: keep(prev.paused, f.paused)}
	p.mu.Unlock()

	if changed(prev.export, f.export) {
		p.logger.Info("export reloaded from config", log.Bool("export", *f.export))
		p.control.SetExportEnabled(*f.export)
	}
	if changed(prev.paused, f.paused) {
		p.logger.Info("pause reloaded from config", log.Bool("paused", *f.paused))
		p.control.SetPaused(*f.paused)
	}
}

func (p *Plugin) read() (flags, error) {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return flags{}, err
	}
	return flags{export: fc.Export, paused: fc.Paused}, nil
}

// changed reports whether next holds a value different from prev.
// Removing a key does not change the flag.
func changed(prev, next *bool) bool {
	if next == nil {
		return false
	}
	return prev == nil || *prev != *next
}

func keep(prev, next *bool) *bool {
	if next == nil {
		return prev
	}
	return next
}

// Ensure Plugin implements seriallog.Plugin.
var _ seriallog.Plugin = (*Plugin)(nil)
