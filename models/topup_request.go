package models

import "time"

// TopupRequest statuses. APPROVED and REJECTED are terminal.
const (
	TopupPending  = "PENDING"
	TopupApproved = "APPROVED"
	TopupRejected = "REJECTED"
)

// TopupRequest is a user-initiated balance increase awaiting admin review.
// At most one PENDING request per user (enforced at creation). Approval
// credits the wallet inside the same transaction that flips the status.
type TopupRequest struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"index;not null"`
	Amount    int64  `gorm:"not null"`
	Status    string `gorm:"size:16;not null;default:PENDING;index"`
	// Optional transfer-proof image uploaded with the request.
	EvidencePath string `gorm:"size:512"`
	// Amount the OCR pass read off the evidence, to assist admin review.
	// Zero when no evidence or nothing detected; never authoritative.
	DetectedAmount     int64
	DetectedConfidence float64
	RejectionReason    *string    `gorm:"size:255"`
	ValidatedAt        *time.Time `gorm:"index"`
	ValidatedByID      *uint
}
