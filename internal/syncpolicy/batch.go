package syncpolicy

import "time"

// Batch job defaults. The job runner in cmd/syncjob consumes these; the
// policy only exposes the values, it does not schedule anything.
const (
	DefaultBatchInterval      = 24 * time.Hour
	DefaultSkipIfSyncedWithin = 12 * time.Hour
	DefaultBatchRatePerMinute = 10
	DefaultBatchSize          = 5
	DefaultInitialWindow      = 90 * 24 * time.Hour
	DefaultIncrementalWindow  = 7 * 24 * time.Hour
)

// BatchPolicy holds the scheduled re-sync knobs. Interval is how often the
// job considers a full sweep, SkipIfSyncedWithin excludes users whose oldest
// account sync is recent enough, and the rate/size pair throttles dispatch.
type BatchPolicy struct {
	Interval           time.Duration
	SkipIfSyncedWithin time.Duration
	RatePerMinute      int
	BatchSize          int
	InitialWindow      time.Duration
	IncrementalWindow  time.Duration
}

// DefaultBatchPolicy returns the standard batch knobs.
func DefaultBatchPolicy() BatchPolicy {
	return BatchPolicy{
		Interval:           DefaultBatchInterval,
		SkipIfSyncedWithin: DefaultSkipIfSyncedWithin,
		RatePerMinute:      DefaultBatchRatePerMinute,
		BatchSize:          DefaultBatchSize,
		InitialWindow:      DefaultInitialWindow,
		IncrementalWindow:  DefaultIncrementalWindow,
	}
}

// ShouldResync reports whether a scheduled job should re-sync a user whose
// oldest account sync happened at oldest. Never-synced users always qualify.
func (p BatchPolicy) ShouldResync(oldest *time.Time, now time.Time) bool {
	if oldest == nil {
		return true
	}
	return now.Sub(*oldest) >= p.SkipIfSyncedWithin
}

// FetchWindow returns how far back a refresh should pull data: the initial
// window for a never-synced account, the incremental window otherwise.
func (p BatchPolicy) FetchWindow(lastSyncedAt *time.Time) time.Duration {
	if lastSyncedAt == nil {
		return p.InitialWindow
	}
	return p.IncrementalWindow
}
