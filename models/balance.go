package models

import "time"

// Balance is the wallet of a USER account, one row per user, created lazily
// at 0 on first need. Amount is in the smallest currency unit and never
// allowed to go negative.
type Balance struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint  `gorm:"uniqueIndex;not null"`
	Amount    int64 `gorm:"not null;default:0"`
}
