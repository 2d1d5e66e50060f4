package model

import "time"

// Subscription is the local copy of a user's payment-provider subscription,
// updated from webhook events. One row per user; webhook handlers upsert so
// replayed events converge on the same state.
type Subscription struct {
	ID                     uint64 `gorm:"primaryKey"`
	UserID                 uint64 `gorm:"not null;uniqueIndex"`
	ProviderSubscriptionID string `gorm:"size:128;not null"`
	Tier                   string `gorm:"size:32;not null;default:'free'"`
	Status                 string `gorm:"size:32;not null"`
	CurrentPeriodEnd       *time.Time
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string { return "subscription" }
