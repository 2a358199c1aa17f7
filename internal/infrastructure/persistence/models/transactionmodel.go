package models

import "time"

type TransactionModel struct {
	ID             uint    `gorm:"primaryKey"`
	OrderCode      string  `gorm:"uniqueIndex;size:64;not null"`
	UserID         uint    `gorm:"index;not null"`
	SubscriptionID *uint   `gorm:"index"`
	AmountCents    int64   `gorm:"not null"`
	Currency       string  `gorm:"size:10;not null;default:'USD'"`
	Status         string  `gorm:"size:20;not null;index"`
	Type           string  `gorm:"size:32;not null;index"`
	Provider       string  `gorm:"size:32;not null"`
	PaymentMethod  *string `gorm:"size:32"`
	BuyerEmail     *string `gorm:"size:255"`
	Description    string  `gorm:"size:255"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
	FailureReason  *string `gorm:"size:255"`
	Metadata       JSONB   `gorm:"type:json"`
	Version        int     `gorm:"default:0"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}
