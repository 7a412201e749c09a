//go:build unix

package main

import (
	"os"
	"syscall"
)

// SIGUSR1 enables the metrics endpoint at runtime, SIGUSR2 disables it.

func metricsToggleSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}
}

func isMetricsEnable(s os.Signal) bool  { return s == syscall.SIGUSR1 }
func isMetricsDisable(s os.Signal) bool { return s == syscall.SIGUSR2 }
