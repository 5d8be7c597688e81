package simulate

import (
	"context"
	"fmt"

	"github.com/okian/rally/internal/domain/standings"
	"github.com/okian/rally/pkg/logger"
)

// verifyStandings checks the table against the generated season: entries
// are ordered, ranks are dense and every classified position's points are
// accounted for exactly once.
func verifyStandings(ctx context.Context, config *Config, season Season, table standings.Table) error {
	logger.Get().Info(ctx, "verifying standings", logger.Int("entries", len(table.Entries)))

	if len(table.Entries) == 0 {
		return fmt.Errorf("standings are empty")
	}
	if err := verifyOrdering(table.Entries); err != nil {
		return err
	}

	want := expectedPoints(season, table.PointsTable)
	got := 0
	for _, e := range table.Entries {
		got += e.Points
	}
	if got != want {
		return fmt.Errorf("standings award %d points, season expects %d", got, want)
	}

	displayTopEntries(ctx, table.Entries, config.Verbose)
	logger.Get().Info(ctx, "standings verified", logger.Int("points", got))
	return nil
}

// verifyOrdering checks points never increase down the table and ranks
// start at 1 and grow by at most one.
func verifyOrdering(entries []standings.Entry) error {
	if entries[0].Rank != 1 {
		return fmt.Errorf("first entry has rank %d", entries[0].Rank)
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Points > prev.Points {
			return fmt.Errorf("standings not sorted: entry %d has more points than entry %d", i, i-1)
		}
		if d := cur.Rank - prev.Rank; d < 0 || d > 1 {
			return fmt.Errorf("rank jumps from %d to %d at entry %d", prev.Rank, cur.Rank, i)
		}
		if cur.Rank == prev.Rank && (cur.Points != prev.Points || cur.Wins != prev.Wins) {
			return fmt.Errorf("entries %d and %d share rank %d without a tie", i-1, i, cur.Rank)
		}
	}
	return nil
}

// expectedPoints sums the points table over every generated row.
func expectedPoints(season Season, table standings.PointsTable) int {
	total := 0
	for _, r := range season.Rallies {
		for _, row := range r.Rows {
			if row.Points != nil {
				total += *row.Points
				continue
			}
			total += table.For(row.Position)
		}
	}
	return total
}

// displayTopEntries logs the head of the table.
func displayTopEntries(ctx context.Context, entries []standings.Entry, verbose bool) {
	topN := 10
	if verbose || len(entries) < topN {
		topN = len(entries)
	}
	for _, e := range entries[:topN] {
		logger.Get().Info(ctx, "standing",
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Int("points", e.Points),
			logger.Int("wins", e.Wins),
			logger.Int("starts", e.Starts))
	}
}
