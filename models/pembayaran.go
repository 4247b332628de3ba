package models

import "time"

// Pembayaran statuses.
const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

// Pembayaran links one user to one tagihan. The (tagihan, user) unique index
// is the settle-exactly-once backstop: two racing payments cannot both
// insert, and a settled row is never re-debited.
type Pembayaran struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	TagihanID uint       `gorm:"not null;uniqueIndex:idx_tagihan_user"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_tagihan_user"`
	Status    string     `gorm:"size:16;not null;default:PENDING"`
	PaidAt    *time.Time `gorm:"index"`
}
