package models

import "time"

type UsageTrackingModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_date_type"`
	UsageDate time.Time `gorm:"not null;uniqueIndex:idx_user_date_type"`
	UsageType string    `gorm:"size:32;not null;uniqueIndex:idx_user_date_type"`
	Count     int64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UsageTrackingModel) TableName() string {
	return "usage_tracking"
}
