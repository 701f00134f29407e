package multibuffer

import "log/slog"

// Option configures a MultiBuffer during creation.
type Option func(*MultiBuffer)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(mb *MultiBuffer) {
		if logger != nil {
			mb.logger = logger
		}
	}
}

// WithInvariantChecks enables or disables the full consistency check run
// after every mutation. Violations panic.
func WithInvariantChecks(enabled bool) Option {
	return func(mb *MultiBuffer) {
		mb.checkInvariants = enabled
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(mb *MultiBuffer) {
		if m != nil {
			mb.metrics = m
		}
	}
}
