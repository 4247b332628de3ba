package models

import "time"

// ProdiSaldo is the aggregate department balance: bill payments targeted at
// the prodi credit it, recorded expenses debit it. Must not go negative.
type ProdiSaldo struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Prodi        string `gorm:"size:64;not null;uniqueIndex"`
	TotalBalance int64  `gorm:"not null;default:0"`
}

// ProdiSaldoHistory is a per-(prodi, month, year) income snapshot used for
// trend reporting only. Not authoritative; the authoritative figure is
// ProdiSaldo.TotalBalance.
type ProdiSaldoHistory struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Prodi     string `gorm:"size:64;not null;uniqueIndex:idx_prodi_month_year"`
	Month     int    `gorm:"not null;uniqueIndex:idx_prodi_month_year"`
	Year      int    `gorm:"not null;uniqueIndex:idx_prodi_month_year"`
	Income    int64  `gorm:"not null;default:0"`
	Balance   int64  `gorm:"not null;default:0"`
}

// ProdiPengeluaran is a department expense row. Expenses appear only in the
// department ledger, never in the per-user Transaction log.
type ProdiPengeluaran struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	Prodi       string    `gorm:"size:64;not null;index"`
	Amount      int64     `gorm:"not null"`
	Description string    `gorm:"size:512;not null"`
	CreatedByID uint      `gorm:"not null"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID"`
}
