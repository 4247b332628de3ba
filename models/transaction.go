package models

import "time"

// Transaction types. Every balance-affecting event appends exactly one row
// per involved wallet (two for transfers).
const (
	TxTopup       = "TOPUP"
	TxPayment     = "PAYMENT"
	TxTransferIn  = "TRANSFER_IN"
	TxTransferOut = "TRANSFER_OUT"
)

// Transaction is the append-only per-user ledger log. For a given user the
// rows chain causally: BalanceAfter of one row equals BalanceBefore of the
// next. Rows are never updated or deleted.
type Transaction struct {
	ID            uint      `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"index"`
	UserID        uint      `gorm:"index;not null"`
	Type          string    `gorm:"size:16;not null"`
	Amount        int64     `gorm:"not null"`
	BalanceBefore int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	Description   string    `gorm:"size:255"`
	RelatedUserID *uint     `gorm:"index"` // counterparty on transfers
	CreatedBy     uint      `gorm:"not null"`
}
