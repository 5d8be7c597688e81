package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithClock overrides the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new record ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *SQLStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithMaxOpenConns caps the connection pool. SQLite stores always use one.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

func defaultID() string { return uuid.NewString() }
