package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount mirrors an account held at the Open Banking aggregator.
// LastSyncedAt is nil until the first successful refresh; the refresh worker
// owns the column, this service only reads it to decide staleness.
type BankAccount struct {
	ID           uint64          `gorm:"primaryKey"`
	UserID       uint64          `gorm:"not null;index"`
	ProviderID   string          `gorm:"size:64;not null"`
	Name         string          `gorm:"size:128;not null"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	Currency     string          `gorm:"size:3;not null;default:'BHD'"`
	LastSyncedAt *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (BankAccount) TableName() string { return "bank_account" }
