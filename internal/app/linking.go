package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jobqueue "github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/domain/linking"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Participants returns every participant with its aliases.
func (s *Service) Participants(ctx context.Context) ([]model.Participant, error) {
	return s.store.Participants(ctx)
}

// Participant returns one participant with its aliases.
func (s *Service) Participant(ctx context.Context, id string) (model.Participant, error) {
	return s.store.Participant(ctx, id)
}

// CreateParticipant creates a canonical participant from a display name
// plus optional alias spellings.
func (s *Service) CreateParticipant(ctx context.Context, name string, aliases []string) (model.Participant, error) {
	p := linking.SeedParticipant(name)
	if p.CanonicalName == "" {
		return model.Participant{}, fmt.Errorf("participant name is empty: %w", ErrInvalidInput)
	}
	for _, a := range aliases {
		if strings.TrimSpace(a) == "" {
			continue
		}
		p.Aliases = append(p.Aliases, model.Alias{Text: strings.TrimSpace(a)})
	}

	created, err := s.store.CreateParticipant(ctx, p)
	if err != nil {
		return model.Participant{}, err
	}
	metrics.RecordManualLinkOperation("create_participant")
	s.logger.Info(ctx, "participant created",
		logger.String("participantID", created.ID),
		logger.String("name", created.DisplayName),
	)
	return created, nil
}

// AddAlias records an alternate spelling for a participant.
func (s *Service) AddAlias(ctx context.Context, participantID, text string) (model.Alias, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Alias{}, fmt.Errorf("alias is empty: %w", ErrInvalidInput)
	}
	a, err := s.store.AddAlias(ctx, participantID, text)
	if err != nil {
		return model.Alias{}, err
	}
	metrics.RecordManualLinkOperation("add_alias")
	return a, nil
}

// AliasConflicts lists alias keys shared by several participants. They are
// allowed, but auto-link skips names that hit them.
func (s *Service) AliasConflicts(ctx context.Context) ([]model.AliasConflict, error) {
	conflicts, err := s.store.AliasConflicts(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateAliasConflicts(len(conflicts))
	return conflicts, nil
}

// UnlinkedResults returns rows still waiting for a participant.
func (s *Service) UnlinkedResults(ctx context.Context) ([]model.Result, error) {
	rs, err := s.store.UnlinkedResults(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateUnlinkedResults(len(rs))
	return rs, nil
}

// SuggestForResult ranks merge candidates for one result row.
func (s *Service) SuggestForResult(ctx context.Context, resultID string) ([]linking.Suggestion, error) {
	r, err := s.store.Result(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return s.SuggestForName(ctx, r.ParticipantName)
}

// SuggestForName ranks merge candidates for a free-text name.
func (s *Service) SuggestForName(ctx context.Context, name string) ([]linking.Suggestion, error) {
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	out := linking.Suggest(name, participants, linking.SuggestOptions{
		Threshold: s.suggestThreshold,
		Limit:     s.maxSuggestions,
	})
	metrics.RecordSuggestionsServed(len(out))
	return out, nil
}

// LinkResult links a row to a participant and records the row's spelling
// as an alias of that participant.
func (s *Service) LinkResult(ctx context.Context, resultID, participantID string) (model.Result, error) {
	r, err := s.store.Result(ctx, resultID)
	if err != nil {
		return model.Result{}, err
	}
	if err := s.store.LinkResult(ctx, resultID, participantID, strings.TrimSpace(r.ParticipantName)); err != nil {
		return model.Result{}, err
	}
	metrics.RecordManualLinkOperation("link")
	s.logger.Info(ctx, "result linked",
		logger.String("resultID", resultID),
		logger.String("participantID", participantID),
	)
	s.refreshGauges(ctx)
	return s.store.Result(ctx, resultID)
}

// UnlinkResult clears a row's participant. The alias is kept.
func (s *Service) UnlinkResult(ctx context.Context, resultID string) (model.Result, error) {
	if err := s.store.UnlinkResult(ctx, resultID); err != nil {
		return model.Result{}, err
	}
	metrics.RecordManualLinkOperation("unlink")
	s.refreshGauges(ctx)
	return s.store.Result(ctx, resultID)
}

// RunAutoLink runs one batch now. It fails with ErrBatchInProgress when
// another batch is running. Once started the batch ignores cancellation of
// ctx and runs to completion.
func (s *Service) RunAutoLink(ctx context.Context, dryRun bool) (linking.Summary, error) {
	if !s.batchMu.TryLock() {
		metrics.RecordAutoLinkBatch("rejected")
		return linking.Summary{}, ErrBatchInProgress
	}
	defer s.batchMu.Unlock()

	return s.runBatch(context.WithoutCancel(ctx), "manual", dryRun)
}

// RunJob runs a queued batch, waiting for any manual batch to finish first.
func (s *Service) RunJob(ctx context.Context, j jobqueue.Job) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	_, err := s.runBatch(ctx, j.Reason, false)
	return err
}

// ScheduleAutoLink asks the background worker for a batch. It reports false
// when a batch is already waiting, which then covers this request too.
func (s *Service) ScheduleAutoLink(ctx context.Context, reason, rallyID string) (bool, error) {
	s.mu.RLock()
	started, jobs := s.started, s.jobs
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	j := jobqueue.Job{
		ID:      fmt.Sprintf("autolink-%d", s.jobSeq.Add(1)),
		Reason:  reason,
		RallyID: rallyID,
	}
	switch err := jobs.Enqueue(ctx, j); {
	case err == nil:
		s.logger.Debug(ctx, "auto-link job scheduled", logger.String("jobID", j.ID), logger.String("reason", reason))
		return true, nil
	case errors.Is(err, jobqueue.ErrFull):
		return false, nil
	case errors.Is(err, jobqueue.ErrClosed):
		return false, ErrNotStarted
	default:
		return false, err
	}
}

// LastBatch returns the report of the last batch that wrote data.
func (s *Service) LastBatch() (BatchReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastBatch == nil {
		return BatchReport{}, false
	}
	return *s.lastBatch, true
}

// runBatch must be called with batchMu held.
func (s *Service) runBatch(ctx context.Context, trigger string, dryRun bool) (linking.Summary, error) {
	linker := linking.NewAutoLinker(s.store,
		linking.WithThreshold(s.autoLinkThreshold),
		linking.WithDryRun(dryRun),
		linking.WithLogger(s.logger.Named("autolink")),
	)

	sum, err := linker.Run(ctx)
	if err != nil {
		metrics.RecordAutoLinkBatch("error")
		metrics.RecordErrorByComponent("autolink", "load_error")
		return sum, err
	}

	metrics.RecordAutoLinkBatch("ok")
	if dryRun {
		return sum, nil
	}
	metrics.RecordAutoLinkSummary(sum.Linked, sum.Created, sum.Skipped, sum.Failed, sum.Duration.Seconds())

	s.mu.Lock()
	s.lastBatch = &BatchReport{Trigger: trigger, Summary: sum, FinishedAt: time.Now()}
	s.mu.Unlock()

	s.refreshGauges(ctx)
	return sum, nil
}
