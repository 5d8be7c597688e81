package linking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/similarity"
	"github.com/okian/rally/pkg/logger"
)

// Store is the persistence the auto-linker reads from and writes to.
type Store interface {
	// UnlinkedResults returns every result row without a participant.
	UnlinkedResults(ctx context.Context) ([]model.Result, error)

	// Participants returns all canonical participants with their aliases.
	Participants(ctx context.Context) ([]model.Participant, error)

	// LinkResult assigns participantID to an unlinked result and records
	// alias for that participant in the same write.
	LinkResult(ctx context.Context, resultID, participantID, alias string) error

	// CreateParticipantAndLink creates p, records the result's free-text
	// name as its first alias and links the result to it.
	CreateParticipantAndLink(ctx context.Context, resultID string, p model.Participant) (model.Participant, error)
}

// Failure describes a result the batch could not resolve.
type Failure struct {
	ResultID string `json:"result_id"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// Summary reports the outcome of one auto-link batch.
type Summary struct {
	Linked       int           `json:"linked"`
	Created      int           `json:"created"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	AliasMatches int           `json:"alias_matches"`
	Failures     []Failure     `json:"failures,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	DryRun       bool          `json:"dry_run,omitempty"`
}

type action int

const (
	actionLinkAlias action = iota
	actionLinkSimilar
	actionCreate
	actionSkipAmbiguous
	actionSkipBlank
)

func (a action) String() string {
	switch a {
	case actionLinkAlias:
		return "alias"
	case actionLinkSimilar:
		return "similarity"
	case actionCreate:
		return "create"
	case actionSkipAmbiguous:
		return "ambiguous"
	case actionSkipBlank:
		return "blank"
	}
	return "unknown"
}

// AutoLinker resolves unlinked results in a single best-effort pass.
type AutoLinker struct {
	store     Store
	threshold float64
	dryRun    bool
	logger    logger.Logger
}

// NewAutoLinker creates an auto-linker over store.
func NewAutoLinker(store Store, opts ...Option) *AutoLinker {
	l := &AutoLinker{
		store:     store,
		threshold: DefaultAutoLinkThreshold,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes every currently unlinked result once. Item failures are
// logged and reported in the summary; they never abort the batch and
// nothing already written is rolled back. An error is returned only when
// the initial data cannot be loaded.
func (l *AutoLinker) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{DryRun: l.dryRun}

	results, err := l.store.UnlinkedResults(ctx)
	if err != nil {
		return sum, fmt.Errorf("load unlinked results: %w", err)
	}
	participants, err := l.store.Participants(ctx)
	if err != nil {
		return sum, fmt.Errorf("load participants: %w", err)
	}

	processed := dedupe.NewInMemoryDeduper()
	for _, r := range results {
		if r.Linked() || processed.SeenAndRecord(ctx, r.ID) {
			continue
		}

		act, target := l.decide(r.ParticipantName, participants)
		switch act {
		case actionSkipAmbiguous, actionSkipBlank:
			sum.Skipped++
			l.logger.Debug(ctx, "result left for manual review",
				logger.String("resultID", r.ID),
				logger.String("name", r.ParticipantName),
				logger.String("reason", act.String()),
			)
			continue
		}

		participants, err = l.apply(ctx, act, r, target, participants)
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{ResultID: r.ID, Name: r.ParticipantName, Error: err.Error()})
			l.logger.Error(ctx, "auto-link failed for result",
				logger.String("resultID", r.ID),
				logger.String("action", act.String()),
				logger.Error(err),
			)
			continue
		}

		switch act {
		case actionCreate:
			sum.Created++
		case actionLinkAlias:
			sum.Linked++
			sum.AliasMatches++
		default:
			sum.Linked++
		}
	}

	sum.Duration = time.Since(start)
	l.logger.Info(ctx, "auto-link batch finished",
		logger.Int("linked", sum.Linked),
		logger.Int("created", sum.Created),
		logger.Int("skipped", sum.Skipped),
		logger.Int("failed", sum.Failed),
		logger.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// decide picks what to do with one free-text name.
func (l *AutoLinker) decide(name string, participants []model.Participant) (action, model.Participant) {
	if similarity.Normalize(name) == "" {
		return actionSkipBlank, model.Participant{}
	}

	switch owners := ExactAliasOwners(name, participants); len(owners) {
	case 0:
	case 1:
		return actionLinkAlias, owners[0]
	default:
		return actionSkipAmbiguous, model.Participant{}
	}

	var matches []model.Participant
	for _, p := range participants {
		if Match(name, p).Score >= l.threshold {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return actionCreate, model.Participant{}
	case 1:
		return actionLinkSimilar, matches[0]
	}
	return actionSkipAmbiguous, model.Participant{}
}

// apply performs the write for act and returns the candidate list updated
// so later rows of the same batch see the new alias or participant.
func (l *AutoLinker) apply(ctx context.Context, act action, r model.Result, target model.Participant, participants []model.Participant) ([]model.Participant, error) {
	name := strings.TrimSpace(r.ParticipantName)

	switch act {
	case actionLinkAlias, actionLinkSimilar:
		if !l.dryRun {
			if err := l.store.LinkResult(ctx, r.ID, target.ID, name); err != nil {
				return participants, fmt.Errorf("link result %s to %s: %w", r.ID, target.ID, err)
			}
		}
		if act == actionLinkSimilar {
			participants = withAlias(participants, target.ID, name)
		}
		return participants, nil

	case actionCreate:
		p := SeedParticipant(name)
		if !l.dryRun {
			created, err := l.store.CreateParticipantAndLink(ctx, r.ID, p)
			if err != nil {
				return participants, fmt.Errorf("create participant for result %s: %w", r.ID, err)
			}
			p = created
		} else {
			p.ID = "pending:" + r.ID
		}
		if len(p.Aliases) == 0 {
			p.Aliases = []model.Alias{{ParticipantID: p.ID, Text: name, Key: similarity.Normalize(name), UsageCount: 1}}
		}
		return append(participants, p), nil
	}
	return participants, nil
}

// SeedParticipant builds a new participant from a free-text name.
func SeedParticipant(name string) model.Participant {
	name = strings.Join(strings.Fields(name), " ")
	return model.Participant{
		CanonicalName: similarity.Normalize(name),
		DisplayName:   name,
	}
}

func withAlias(participants []model.Participant, participantID, text string) []model.Participant {
	key := similarity.Normalize(text)
	for i := range participants {
		if participants[i].ID != participantID {
			continue
		}
		for _, a := range participants[i].Aliases {
			if aliasKey(a) == key {
				return participants
			}
		}
		participants[i].Aliases = append(participants[i].Aliases, model.Alias{
			ParticipantID: participantID,
			Text:          text,
			Key:           key,
			UsageCount:    1,
		})
	}
	return participants
}
