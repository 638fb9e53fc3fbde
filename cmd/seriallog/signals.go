package main

import (
	"os"

	logAdapter "github.com/bft-labs/seriallog/pkg/log"
)

// toggler is the part of the logger the toggle signals drive.
type toggler interface {
	SetPaused(bool)
	Paused() bool
	SetExportEnabled(bool)
	ExportEnabled() bool
}

// handleToggle flips export on exportSignal and pause on pauseSignal.
func handleToggle(sig os.Signal, t toggler, logger logAdapter.Logger) {
	switch sig {
	case exportSignal:
		enabled := !t.ExportEnabled()
		t.SetExportEnabled(enabled)
		logger.Info("export toggled by signal", logAdapter.Bool("export", enabled))
	case pauseSignal:
		paused := !t.Paused()
		t.SetPaused(paused)
		logger.Info("pause toggled by signal", logAdapter.Bool("paused", paused))
	}
}
