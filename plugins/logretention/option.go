package logretention

import "github.com/bft-labs/seriallog/pkg/seriallog"

// WithLogRetention returns a seriallog Option that enables log retention.
//
// Usage:
//
//	l, err := seriallog.New(cfg,
//	    logretention.WithLogRetention(logretention.Config{
//	        CheckInterval: 10 * time.Minute,
//	        HighWatermark: 4 << 30, // 4 GiB
//	        LowWatermark:  3 << 30, // 3 GiB
//	    }),
//	)
func WithLogRetention(cfg Config) seriallog.Option {
	return seriallog.WithPlugin(New(cfg))
}

// WithDefaultLogRetention enables log retention with default settings
// (check every 5m, high watermark 1 GiB, low watermark 80% of it).
func WithDefaultLogRetention() seriallog.Option {
	return WithLogRetention(DefaultConfig())
}
