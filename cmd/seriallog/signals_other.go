//go:build !unix

package main

import "os"

// no user signals on this platform; use MQTT control or the config file
var (
	exportSignal os.Signal
	pauseSignal  os.Signal
)

func toggleSignals() []os.Signal {
	return nil
}
