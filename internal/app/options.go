package service

import (
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSuggestThreshold sets the exclusive score a suggestion must beat.
func WithSuggestThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold < 1 {
			s.suggestThreshold = threshold
		}
	}
}

// WithAutoLinkThreshold sets the inclusive score an auto-link needs.
func WithAutoLinkThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.autoLinkThreshold = threshold
		}
	}
}

// WithMaxSuggestions caps suggestion lists. Values <= 0 mean no cap.
func WithMaxSuggestions(n int) Option {
	return func(s *Service) {
		s.maxSuggestions = n
	}
}

// WithPointsTable overrides the standings points table.
func WithPointsTable(table []int) Option {
	return func(s *Service) {
		s.pointsTable = append([]int(nil), table...)
	}
}

// WithAutoLinkOnSubmit schedules a background batch after each accepted
// results submission.
func WithAutoLinkOnSubmit(enabled bool) Option {
	return func(s *Service) {
		s.autoLinkOnSubmit = enabled
	}
}

// WithSubmissionDedupeSize bounds how many recent idempotency keys are
// answered from memory. Older keys are still checked by the store.
func WithSubmissionDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
