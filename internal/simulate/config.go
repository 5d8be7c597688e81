package simulate

import (
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// Config holds configuration for a simulated season.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rallies    int           // Number of rallies in the season
	Drivers    int           // Number of distinct drivers
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for the generated season
	LogFile    string        // Log file for the run
	Verbose    bool          // Enable verbose logging
}

// RallyPlan is one generated rally and the rows submitted for it.
type RallyPlan struct {
	Name           string              `json:"name"`
	HeldOn         time.Time           `json:"held_on"`
	IdempotencyKey string              `json:"idempotency_key"`
	Rows           []model.ResultInput `json:"rows"`

	id string
}

// Season is the generated input of a run.
type Season struct {
	Championship string      `json:"championship"`
	Drivers      []string    `json:"drivers"`
	Rallies      []RallyPlan `json:"rallies"`
}

// Stats holds run statistics.
type Stats struct {
	RalliesCreated  int
	RowsGenerated   int
	RowsSubmitted   int
	Submissions     int
	Duplicates      int
	Failed          int
	Linked          int
	Created         int
	Skipped         int
	Approved        int
	StandingEntries int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
