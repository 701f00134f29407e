package multibuffer

import "time"

// MetricsCollector receives operational metrics from a MultiBuffer.
// See package metrics for a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each InsertExcerpts call.
	// requested is the number of ranges passed in, dropped the number
	// discarded as empty or inverted, and excerpts the resulting count.
	RecordInsert(requested, dropped, excerpts int, duration time.Duration)

	// RecordSync is called after a synchronization that found changes.
	RecordSync(renames, edits, excerpts int, duration time.Duration)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(int, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSync(int, int, int, time.Duration)   {}
