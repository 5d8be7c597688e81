package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
)

const defaultClass = "RC1"

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// shuffled returns a random permutation of names.
func shuffled(names []string) []string {
	out := append([]string(nil), names...)
	for i := len(out) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// generateSeason builds the rallies of a season. Every driver starts every
// rally; some rows carry a spelling variant of the driver's name the way a
// timing sheet would.
func generateSeason(ctx context.Context, config *Config, stats *Stats) (Season, error) {
	if config.Drivers < 1 || config.Drivers > len(driverPool) {
		return Season{}, fmt.Errorf("drivers must be between 1 and %d, got %d", len(driverPool), config.Drivers)
	}
	if config.Rallies < 1 || config.Rallies > maxRallies {
		return Season{}, fmt.Errorf("rallies must be between 1 and %d, got %d", maxRallies, config.Rallies)
	}

	logger.Get().Info(ctx, "generating season",
		logger.Int("rallies", config.Rallies),
		logger.Int("drivers", config.Drivers))

	start := time.Now().UTC().Truncate(24 * time.Hour)
	season := Season{
		Championship: fmt.Sprintf("Simulated Championship %s", start.Format("2006-01-02 15:04")),
		Drivers:      append([]string(nil), driverPool[:config.Drivers]...),
	}

	for i := 0; i < config.Rallies; i++ {
		if err := ctx.Err(); err != nil {
			return Season{}, fmt.Errorf("context cancelled during generation: %w", err)
		}
		order := shuffled(season.Drivers)
		plan := RallyPlan{
			Name:           fmt.Sprintf("Round %d", i+1),
			HeldOn:         start.Add(time.Duration(i) * rallySpacing),
			IdempotencyKey: uuid.NewString(),
			Rows:           make([]model.ResultInput, 0, len(order)),
		}
		for pos, name := range order {
			plan.Rows = append(plan.Rows, model.ResultInput{
				ParticipantName: spellingVariant(name, i+pos),
				Class:           defaultClass,
				Position:        pos + 1,
			})
		}
		stats.RowsGenerated += len(plan.Rows)
		season.Rallies = append(season.Rallies, plan)
	}

	logger.Get().Info(ctx, "generated season", logger.Int("rows", stats.RowsGenerated))
	return season, nil
}

// spellingVariant returns name or a close variant of it, chosen by k. The
// variants stay within one edit of the name so the auto-linker can match
// them.
func spellingVariant(name string, k int) string {
	switch k % variantEvery {
	case 1:
		return strings.ToUpper(strings.Join(strings.Fields(name), "  "))
	case 2:
		runes := []rune(name)
		if len(runes) < minVariantLength {
			return name
		}
		mid := len(runes) / 2
		for mid < len(runes)-1 && runes[mid] == ' ' {
			mid++
		}
		return string(append(runes[:mid:mid], runes[mid+1:]...))
	}
	return name
}
