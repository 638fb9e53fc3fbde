package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/seriallog/pkg/log"
)

// Logger returns the CLI logger writing human readable output to stderr.
// Filtering is left to the global level set by SetLogLevel.
func Logger() zerolog.Logger {
	return log.NewConsoleLogger(os.Stderr, zerolog.TraceLevel)
}

// SetLogLevel sets the global zerolog level from a level name such as
// "debug" or "warn". Unknown names select info.
func SetLogLevel(name string) {
	zerolog.SetGlobalLevel(log.ParseLevel(name))
}
