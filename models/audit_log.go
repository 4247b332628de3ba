package models

import "time"

// AuditLog is the append-only trail of state-changing actions. Rows are
// written best-effort outside the financial transaction and never mutated.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	ActorID   uint      `gorm:"index;not null"`
	Action    string    `gorm:"size:64;not null;index"`
	Detail    string    `gorm:"type:text"` // free-form JSON
	IPAddress *string   `gorm:"size:64"`
}
