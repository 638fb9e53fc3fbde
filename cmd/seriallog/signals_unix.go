//go:build unix

package main

import (
	"os"
	"syscall"
)

var (
	exportSignal os.Signal = syscall.SIGUSR1
	pauseSignal  os.Signal = syscall.SIGUSR2
)

func toggleSignals() []os.Signal {
	return []os.Signal{exportSignal, pauseSignal}
}
