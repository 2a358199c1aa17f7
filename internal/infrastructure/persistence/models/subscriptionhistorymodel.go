package models

import "time"

type SubscriptionHistoryModel struct {
	ID             uint    `gorm:"primaryKey"`
	SubscriptionID uint    `gorm:"index;not null"`
	UserID         uint    `gorm:"index;not null"`
	Action         string  `gorm:"size:20;not null"`
	OldTier        *string `gorm:"size:20"`
	NewTier        *string `gorm:"size:20"`
	AmountCents    int64   `gorm:"not null;default:0"`
	Reason         *string `gorm:"size:255"`
	OccurredAt     time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
}

func (SubscriptionHistoryModel) TableName() string {
	return "subscription_histories"
}
