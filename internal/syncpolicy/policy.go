package syncpolicy

import (
	"fmt"
	"time"
)

// Action is the refresh decision for externally-sourced account data.
type Action int

const (
	// ActionNone means the data is fresh enough to serve as-is.
	ActionNone Action = iota
	// ActionBalanceOnly refreshes balances but skips transaction history.
	ActionBalanceOnly
	// ActionFull refreshes balances and transaction history.
	ActionFull
)

func (a Action) String() string {
	switch a {
	case ActionBalanceOnly:
		return "balance_only"
	case ActionFull:
		return "full"
	default:
		return "none"
	}
}

// Default thresholds. Lower bounds are inclusive: an account exactly at the
// fresh threshold gets a balance refresh, exactly at the balance threshold a
// full one.
const (
	DefaultFreshThreshold   = 15 * time.Minute
	DefaultBalanceThreshold = 60 * time.Minute
)

// Thresholds parameterizes the interactive staleness decision.
type Thresholds struct {
	Fresh       time.Duration
	BalanceOnly time.Duration
}

// DefaultThresholds returns the standard interactive thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Fresh: DefaultFreshThreshold, BalanceOnly: DefaultBalanceThreshold}
}

// Decide maps the age of the last successful sync to a refresh action.
// A nil timestamp means the account has never been synced and always gets a
// full refresh.
func (t Thresholds) Decide(lastSyncedAt *time.Time, now time.Time) Action {
	if lastSyncedAt == nil {
		return ActionFull
	}
	age := now.Sub(*lastSyncedAt)
	switch {
	case age < t.Fresh:
		return ActionNone
	case age < t.BalanceOnly:
		return ActionBalanceOnly
	default:
		return ActionFull
	}
}

// OldestSyncTime returns the oldest non-nil timestamp in the list, so a
// multi-account user's refresh decision follows the stalest account. Returns
// nil for an empty list or when every entry is nil.
func OldestSyncTime(times []*time.Time) *time.Time {
	var oldest *time.Time
	for _, t := range times {
		if t == nil {
			continue
		}
		if oldest == nil || t.Before(*oldest) {
			oldest = t
		}
	}
	return oldest
}

// FormatRecency renders a timestamp as a coarse human-readable age label.
// Buckets truncate: 119 minutes is "1h ago" because hours use floor division.
func FormatRecency(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	age := now.Sub(*t)
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours())/24)
	}
}
