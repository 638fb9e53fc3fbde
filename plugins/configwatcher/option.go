package configwatcher

import "github.com/bft-labs/seriallog/pkg/seriallog"

// WithConfigWatcher returns a seriallog Option that reloads the `export`
// and `paused` keys of a TOML config file while the logger runs.
//
// Usage:
//
//	l, err := seriallog.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/seriallog/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) seriallog.Option {
	return seriallog.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a seriallog Option that watches
// ~/.seriallog/config.toml with default settings.
func WithDefaultConfigWatcher() seriallog.Option {
	return WithConfigWatcher(DefaultConfig())
}
