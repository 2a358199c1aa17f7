package models

import "time"

type SubscriptionModel struct {
	ID                     uint   `gorm:"primaryKey"`
	UserID                 uint   `gorm:"index;not null"`
	Tier                   string `gorm:"size:20;not null"`
	Status                 string `gorm:"size:20;not null;index:idx_status_next_billing"`
	BillingCycle           string `gorm:"size:10;not null"`
	PriceCents             int64  `gorm:"not null"`
	Currency               string `gorm:"size:10;not null;default:'USD'"`
	StartDate              time.Time `gorm:"not null"`
	EndDate                time.Time `gorm:"not null"`
	NextBillingDate        time.Time `gorm:"not null;index:idx_status_next_billing"`
	// No default tag: gorm omits zero-value fields that carry one, which
	// would silently turn autoRenew=false into the column default on insert.
	AutoRenew              bool      `gorm:"not null"`
	ExternalSubscriptionID string    `gorm:"uniqueIndex;size:64;not null"`
	CancelledAt            *time.Time
	CancellationReason     *string `gorm:"size:255"`
	Metadata               JSONB   `gorm:"type:json"`
	Version                int     `gorm:"default:0"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
