package linking

import "github.com/okian/rally/pkg/logger"

// Option applies a configuration option to the AutoLinker.
type Option func(*AutoLinker)

// WithThreshold sets the inclusive similarity a single candidate needs to
// be linked automatically. Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(l *AutoLinker) {
		if threshold > 0 && threshold <= 1 {
			l.threshold = threshold
		}
	}
}

// WithDryRun makes the batch compute its summary without writing.
func WithDryRun(dryRun bool) Option {
	return func(l *AutoLinker) {
		l.dryRun = dryRun
	}
}

// WithLogger sets a custom logger for the auto-linker.
func WithLogger(log logger.Logger) Option {
	return func(l *AutoLinker) {
		if log != nil {
			l.logger = log
		}
	}
}
