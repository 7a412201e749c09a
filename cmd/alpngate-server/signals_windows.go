//go:build windows

package main

import "os"

// Windows has no SIGUSR signals; the metrics toggle is unix-only.

func metricsToggleSignals() []os.Signal { return nil }

func isMetricsEnable(os.Signal) bool  { return false }
func isMetricsDisable(os.Signal) bool { return false }
