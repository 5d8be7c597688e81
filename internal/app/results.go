package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/okian/rally/internal/adapters/importer"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Submission sources.
const (
	SourceJSON = "json"
	SourceHTML = "html"
)

// CreateRally stores a rally.
func (s *Service) CreateRally(ctx context.Context, r model.Rally) (model.Rally, error) {
	return s.store.CreateRally(ctx, r)
}

// Rallies lists all rallies.
func (s *Service) Rallies(ctx context.Context) ([]model.Rally, error) {
	return s.store.Rallies(ctx)
}

// SubmitResults stores rows for a rally as pending and unlinked. A
// non-empty idempotencyKey makes a repeated submission fail with
// ErrDuplicateSubmission instead of storing the rows twice. Keys are
// persisted with the rows; the in-memory set only answers recent repeats
// without a store round trip.
func (s *Service) SubmitResults(ctx context.Context, rallyID string, rows []model.ResultInput, idempotencyKey string) ([]model.Result, error) {
	return s.submit(ctx, SourceJSON, rallyID, rows, idempotencyKey)
}

// ImportResults parses a published HTML results table and submits its rows.
func (s *Service) ImportResults(ctx context.Context, rallyID string, body io.Reader, defaultClass, idempotencyKey string) ([]model.Result, error) {
	rows, err := importer.ParseHTML(body, importer.WithDefaultClass(defaultClass))
	if err != nil {
		metrics.RecordErrorByComponent("importer", "parse_error")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.submit(ctx, SourceHTML, rallyID, rows, idempotencyKey)
}

func (s *Service) submit(ctx context.Context, source, rallyID string, rows []model.ResultInput, idempotencyKey string) ([]model.Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result rows: %w", ErrInvalidInput)
	}

	key := ""
	if idempotencyKey != "" {
		key = rallyID + "/" + idempotencyKey
		if s.submissions.SeenAndRecord(ctx, key) {
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("rallyID", rallyID),
				logger.String("key", idempotencyKey),
			)
			return nil, ErrDuplicateSubmission
		}
	}

	results, err := s.store.AddSubmission(ctx, rallyID, idempotencyKey, rows)
	if errors.Is(err, repository.ErrDuplicateKey) {
		s.logger.Debug(ctx, "duplicate submission", logger.String("rallyID", rallyID), logger.String("key", idempotencyKey))
		return nil, ErrDuplicateSubmission
	}
	if err != nil {
		if key != "" {
			s.submissions.Unrecord(ctx, key)
		}
		return nil, err
	}

	metrics.RecordResultsSubmitted(source, len(results))
	s.logger.Info(ctx, "results submitted",
		logger.String("rallyID", rallyID),
		logger.String("source", source),
		logger.Int("rows", len(results)),
	)

	if s.autoLinkOnSubmit {
		if _, err := s.ScheduleAutoLink(ctx, "submit", rallyID); err != nil {
			s.logger.Warn(ctx, "could not schedule auto-link", logger.Error(err))
		}
	}
	s.refreshGauges(ctx)
	return results, nil
}

// SetResultStatus approves or rejects one row.
func (s *Service) SetResultStatus(ctx context.Context, resultID, status string) (model.Result, error) {
	if !model.ValidStatus(status) {
		return model.Result{}, fmt.Errorf("status %q: %w", status, ErrInvalidInput)
	}
	r, err := s.store.SetResultStatus(ctx, resultID, status)
	if err != nil {
		return model.Result{}, err
	}
	metrics.RecordResultStatusChange(status, 1)
	return r, nil
}

// ApproveRally approves every pending row of a rally.
func (s *Service) ApproveRally(ctx context.Context, rallyID string) (int, error) {
	n, err := s.store.ApproveRally(ctx, rallyID)
	if err != nil {
		return 0, err
	}
	metrics.RecordResultStatusChange(model.StatusApproved, n)
	s.logger.Info(ctx, "rally approved", logger.String("rallyID", rallyID), logger.Int("rows", n))
	return n, nil
}
