package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rally/internal/domain/linking"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/standings"
	"github.com/okian/rally/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run drives a full season through the service: rallies are created and
// submitted, the auto-linker resolves the names, the rallies are approved
// and the resulting standings are checked against the generated input.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting season simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("rallies", config.Rallies),
		logger.Int("drivers", config.Drivers),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config)

	if err := checkServiceReady(ctx, client); err != nil {
		return stats, fmt.Errorf("service readiness check failed: %w", err)
	}

	season, err := generateSeason(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("season generation failed: %w", err)
	}

	championshipID, err := createSeason(ctx, client, &season, stats)
	if err != nil {
		return stats, fmt.Errorf("season setup failed: %w", err)
	}

	if err := submitRallies(ctx, config, client, &season, stats); err != nil {
		return stats, fmt.Errorf("result submission failed: %w", err)
	}

	if err := runAutoLink(ctx, client, stats); err != nil {
		return stats, fmt.Errorf("auto-link failed: %w", err)
	}

	if err := approveRallies(ctx, client, season, stats); err != nil {
		return stats, fmt.Errorf("approval failed: %w", err)
	}

	var table standings.Table
	if _, err := client.do(ctx, http.MethodGet, "/championships/"+championshipID+"/standings", nil, nil, &table, http.StatusOK); err != nil {
		return stats, fmt.Errorf("standings retrieval failed: %w", err)
	}
	stats.StandingEntries = len(table.Entries)

	if err := verifyStandings(ctx, config, season, table); err != nil {
		return stats, fmt.Errorf("standings verification failed: %w", err)
	}

	if err := saveSeasonToFile(ctx, config, season); err != nil {
		logger.Get().Warn(ctx, "failed to save season to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return stats, nil
}

// checkServiceReady verifies the service and its store answer.
func checkServiceReady(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service readiness")
	if _, err := client.do(ctx, http.MethodGet, "/readyz", nil, nil, nil, http.StatusOK); err != nil {
		return err
	}
	logger.Get().Info(ctx, "service is ready")
	return nil
}

// createSeason creates the championship and its rallies, recording the
// rally IDs on the plans.
func createSeason(ctx context.Context, client *HTTPClient, season *Season, stats *Stats) (string, error) {
	var champ model.Championship
	if _, err := client.do(ctx, http.MethodPost, "/championships",
		map[string]string{"name": season.Championship, "kind": model.KindIndividual},
		nil, &champ, http.StatusCreated); err != nil {
		return "", err
	}

	for i := range season.Rallies {
		plan := &season.Rallies[i]
		var rally model.Rally
		body := map[string]any{
			"name":            plan.Name,
			"held_on":         plan.HeldOn.Format(time.DateOnly),
			"championship_id": champ.ID,
		}
		if _, err := client.do(ctx, http.MethodPost, "/rallies", body, nil, &rally, http.StatusCreated); err != nil {
			return "", fmt.Errorf("create %s: %w", plan.Name, err)
		}
		plan.id = rally.ID
		stats.RalliesCreated++
	}

	logger.Get().Info(ctx, "season created",
		logger.String("championshipID", champ.ID),
		logger.Int("rallies", stats.RalliesCreated))
	return champ.ID, nil
}

// runAutoLink runs one batch synchronously. A batch already running on the
// server is waited out once.
func runAutoLink(ctx context.Context, client *HTTPClient, stats *Stats) error {
	var sum linking.Summary
	status, err := client.do(ctx, http.MethodPost, "/autolink", nil, nil, &sum, http.StatusOK)
	if status == http.StatusConflict {
		logger.Get().Info(ctx, "a batch is already running, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		_, err = client.do(ctx, http.MethodPost, "/autolink", nil, nil, &sum, http.StatusOK)
	}
	if err != nil {
		return err
	}

	stats.Linked = sum.Linked
	stats.Created = sum.Created
	stats.Skipped = sum.Skipped
	logger.Get().Info(ctx, "auto-link finished",
		logger.Int("linked", sum.Linked),
		logger.Int("created", sum.Created),
		logger.Int("skipped", sum.Skipped),
		logger.Int("failed", sum.Failed))
	return nil
}

// approveRallies approves every pending row of the season.
func approveRallies(ctx context.Context, client *HTTPClient, season Season, stats *Stats) error {
	for _, plan := range season.Rallies {
		var out struct {
			Approved int `json:"approved"`
		}
		if _, err := client.do(ctx, http.MethodPost, "/rallies/"+plan.id+"/approve", nil, nil, &out, http.StatusOK); err != nil {
			return fmt.Errorf("approve %s: %w", plan.Name, err)
		}
		stats.Approved += out.Approved
	}
	return nil
}

// saveSeasonToFile writes the generated season as JSON.
func saveSeasonToFile(ctx context.Context, config *Config, season Season) error {
	filename := config.OutputFile
	if filename == "" {
		filename = "season_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(season, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal season: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write season: %w", err)
	}

	logger.Get().Info(ctx, "season saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var linkRate float64
	if stats.RowsSubmitted > 0 {
		linkRate = float64(stats.Linked+stats.Created) / float64(stats.RowsSubmitted) * PercentageMultiplier
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("ralliesCreated", stats.RalliesCreated),
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("rowsSubmitted", stats.RowsSubmitted),
		logger.Int("duplicatesRejected", stats.Duplicates),
		logger.Int("linked", stats.Linked),
		logger.Int("created", stats.Created),
		logger.Int("skipped", stats.Skipped),
		logger.Int("approved", stats.Approved),
		logger.Int("standingEntries", stats.StandingEntries),
		logger.Float64("linkRate", linkRate),
		logger.Duration("duration", stats.Duration))
}
