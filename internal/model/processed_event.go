package model

import "time"

// ProcessedEvent records that a webhook event id has been handled. The unique
// index on EventID is the single source of truth for duplicate detection;
// concurrent retried deliveries race to insert and the constraint arbitrates.
// Rows are write-once and pruned by an external retention job.
type ProcessedEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     string    `gorm:"size:128;not null;uniqueIndex"`
	EventType   string    `gorm:"size:64;not null"`
	Metadata    string    `gorm:"type:jsonb"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

func (ProcessedEvent) TableName() string { return "processed_event" }
