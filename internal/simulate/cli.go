package simulate

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rally/pkg/logger"
)

// SetupLogging initializes the global logger to write to both the console
// and a file. If logFile is empty, a timestamped filename is generated. The
// returned function closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWith(logger.Options{Output: io.MultiWriter(os.Stdout, file)}); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Rally Season Simulator
======================

Drives a generated season through a running rally results service:
creates a championship and its rallies, submits results with spelling
variants, runs auto-link, approves the rallies and verifies the standings.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rallies int
        Number of rallies in the season (default 8)
  -drivers int
        Number of drivers, at most 20 (default 12)
  -workers int
        Number of concurrent submitters (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated season (default: season_TIMESTAMP.json)
  -log string
        Log file for the run (default: simulate_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -rallies 12 -drivers 20
  go run ./cmd/simulate -url http://localhost:8080 -verbose
`)
}
