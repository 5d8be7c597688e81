// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	jobqueue "github.com/okian/rally/internal/adapters/mq/queue"
	jobworker "github.com/okian/rally/internal/adapters/mq/worker"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/linking"
	"github.com/okian/rally/internal/domain/standings"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

const (
	defaultMaxSuggestions = 10
	defaultDedupeSize     = 10000
	workerShutdownTimeout = 30 * time.Second
)

// BatchReport is the outcome of the last auto-link batch that wrote data.
type BatchReport struct {
	Trigger    string          `json:"trigger"`
	Summary    linking.Summary `json:"summary"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Service implements the API dependencies for results and linking.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	submissions dedupe.Deduper
	calc        *standings.Calculator
	jobs        *jobqueue.InMemoryQueue
	worker      *jobworker.InMemoryWorker

	// Configuration
	suggestThreshold  float64
	autoLinkThreshold float64
	maxSuggestions    int
	pointsTable       []int
	dedupeSize        int
	autoLinkOnSubmit  bool

	// Batches never overlap.
	batchMu   sync.Mutex
	lastBatch *BatchReport
	jobSeq    atomic.Uint64

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		suggestThreshold:  linking.DefaultSuggestThreshold,
		autoLinkThreshold: linking.DefaultAutoLinkThreshold,
		maxSuggestions:    defaultMaxSuggestions,
		dedupeSize:        defaultDedupeSize,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.calc = standings.NewCalculator(standings.WithPointsTable(s.pointsTable))
	s.submissions = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start verifies the store and starts the background auto-link worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	s.logger.Info(ctx, "starting results service...")

	s.jobs = jobqueue.NewInMemoryQueue()
	s.worker = jobworker.NewInMemoryWorker(s.jobs, s,
		jobworker.WithName("autolink-worker"),
		jobworker.WithLogger(s.logger),
	)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.worker.Run(runCtx)

	s.started = true
	s.refreshGauges(ctx)
	s.logger.Info(ctx, "results service started",
		logger.Float64("suggestThreshold", s.suggestThreshold),
		logger.Float64("autoLinkThreshold", s.autoLinkThreshold),
		logger.Int("maxSuggestions", s.maxSuggestions),
		logger.Bool("autoLinkOnSubmit", s.autoLinkOnSubmit),
	)
	return nil
}

// Stop drains the job queue, waits for a running batch and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	jobs, w, stop := s.jobs, s.worker, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping results service...")

	_ = jobs.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	select {
	case <-w.Done():
	case <-shutdownCtx.Done():
		s.logger.Warn(ctx, "auto-link worker did not drain in time")
		stop()
		if err := w.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "error stopping auto-link worker", logger.Error(err))
		}
	}
	stop()

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
	s.logger.Info(ctx, "results service stopped")
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"suggestThreshold":  s.suggestThreshold,
		"autoLinkThreshold": s.autoLinkThreshold,
		"maxSuggestions":    s.maxSuggestions,
		"pointsTable":       s.calc.Table(),
		"autoLinkOnSubmit":  s.autoLinkOnSubmit,
		"submissionKeys":    s.submissions.Size(),
	}
	if s.lastBatch != nil {
		stats["lastBatch"] = *s.lastBatch
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.jobs.Len(ctx)
	if n, err := s.store.CountUnlinked(ctx); err == nil {
		stats["unlinkedResults"] = n
		metrics.UpdateUnlinkedResults(n)
	}
	if ps, err := s.store.Participants(ctx); err == nil {
		stats["participants"] = len(ps)
		metrics.UpdateParticipants(len(ps))
	}
	if conflicts, err := s.store.AliasConflicts(ctx); err == nil {
		stats["aliasConflicts"] = len(conflicts)
		metrics.UpdateAliasConflicts(len(conflicts))
	}
	return stats
}

// refreshGauges updates the unlinked and participant gauges. Errors are
// only logged.
func (s *Service) refreshGauges(ctx context.Context) {
	if n, err := s.store.CountUnlinked(ctx); err != nil {
		s.logger.Warn(ctx, "count unlinked results failed", logger.Error(err))
	} else {
		metrics.UpdateUnlinkedResults(n)
	}
	if ps, err := s.store.Participants(ctx); err != nil {
		s.logger.Warn(ctx, "count participants failed", logger.Error(err))
	} else {
		metrics.UpdateParticipants(len(ps))
	}
}
