package model

import "time"

// SyncRequest is the Kafka message asking the refresh worker to pull fresh
// data from the aggregator for one user. It is a wire type, not a table.
type SyncRequest struct {
	UserID      uint64    `json:"user_id"`
	AccountIDs  []uint64  `json:"account_ids,omitempty"`
	Action      string    `json:"action"`
	WindowHours int       `json:"window_hours"`
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source"`
}
