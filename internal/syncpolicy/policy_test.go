package syncpolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(t time.Time) *time.Time { return &t }

func TestDecide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := DefaultThresholds()

	cases := []struct {
		name string
		last *time.Time
		want Action
	}{
		{"never synced", nil, ActionFull},
		{"just synced", ts(now), ActionNone},
		{"14m59s", ts(now.Add(-15*time.Minute + time.Second)), ActionNone},
		{"exactly 15m", ts(now.Add(-15 * time.Minute)), ActionBalanceOnly},
		{"30m", ts(now.Add(-30 * time.Minute)), ActionBalanceOnly},
		{"59m59s", ts(now.Add(-time.Hour + time.Second)), ActionBalanceOnly},
		{"exactly 60m", ts(now.Add(-time.Hour)), ActionFull},
		{"2h", ts(now.Add(-2 * time.Hour)), ActionFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, th.Decide(tc.last, now))
		})
	}
}

func TestOldestSyncTime(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	assert.Nil(t, OldestSyncTime(nil))
	assert.Nil(t, OldestSyncTime([]*time.Time{}))
	assert.Nil(t, OldestSyncTime([]*time.Time{nil, nil}))

	got := OldestSyncTime([]*time.Time{nil, &t2, &t1})
	assert.NotNil(t, got)
	assert.True(t, got.Equal(t1))
}

func TestFormatRecency(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		last *time.Time
		want string
	}{
		{"never", nil, "Never"},
		{"now", ts(now), "Just now"},
		{"30s", ts(now.Add(-30 * time.Second)), "Just now"},
		{"45m", ts(now.Add(-45 * time.Minute)), "45m ago"},
		{"5h", ts(now.Add(-5 * time.Hour)), "5h ago"},
		{"119m floors to 1h", ts(now.Add(-119 * time.Minute)), "1h ago"},
		{"3d", ts(now.Add(-3 * 24 * time.Hour)), "3d ago"},
		{"25h floors to 1d", ts(now.Add(-25 * time.Hour)), "1d ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatRecency(tc.last, now))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "balance_only", ActionBalanceOnly.String())
	assert.Equal(t, "full", ActionFull.String())
}

func TestBatchPolicy_ShouldResync(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bp := DefaultBatchPolicy()

	assert.True(t, bp.ShouldResync(nil, now))
	assert.True(t, bp.ShouldResync(ts(now.Add(-13*time.Hour)), now))
	assert.True(t, bp.ShouldResync(ts(now.Add(-12*time.Hour)), now))
	assert.False(t, bp.ShouldResync(ts(now.Add(-11*time.Hour)), now))
}

func TestBatchPolicy_FetchWindow(t *testing.T) {
	now := time.Now()
	bp := DefaultBatchPolicy()

	assert.Equal(t, 90*24*time.Hour, bp.FetchWindow(nil))
	assert.Equal(t, 7*24*time.Hour, bp.FetchWindow(&now))
}

func TestDefaults(t *testing.T) {
	bp := DefaultBatchPolicy()
	assert.Equal(t, 24*time.Hour, bp.Interval)
	assert.Equal(t, 12*time.Hour, bp.SkipIfSyncedWithin)
	assert.Equal(t, 10, bp.RatePerMinute)
	assert.Equal(t, 5, bp.BatchSize)

	th := DefaultThresholds()
	assert.Equal(t, 15*time.Minute, th.Fresh)
	assert.Equal(t, time.Hour, th.BalanceOnly)
}
