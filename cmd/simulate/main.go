package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/rally/internal/simulate"
)

// Default configuration constants.
const (
	defaultRallies  = 8
	defaultDrivers  = 12
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	baseURL := "http://localhost:9080"
	if v := os.Getenv("RALLY_SIMULATE_URL"); v != "" {
		baseURL = v
	}

	var (
		url        = flag.String("url", baseURL, "Base URL of the service")
		rallies    = flag.Int("rallies", defaultRallies, "Number of rallies in the season")
		drivers    = flag.Int("drivers", defaultDrivers, "Number of drivers")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for the generated season (default: season_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for the run (default: simulate_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closeLog, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	config := &simulate.Config{
		BaseURL:    *url,
		Rallies:    *rallies,
		Drivers:    *drivers,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
