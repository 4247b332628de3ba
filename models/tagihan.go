package models

import "time"

// Tagihan jenis (bill categories).
const (
	JenisKas     = "KAS"
	JenisAcara   = "ACARA"
	JenisSeminar = "SEMINAR"
	JenisOther   = "OTHER"
)

// Tagihan is a bill issued by an operator for their prodi (or by an admin
// for any). ProdiTarget/AngkatanTarget nil means no filter on that axis.
type Tagihan struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
	Title          string     `gorm:"size:255;not null"`
	Description    string     `gorm:"size:512"`
	Jenis          string     `gorm:"size:16;not null"`
	ProdiTarget    *string    `gorm:"size:64;index"`
	AngkatanTarget *string    `gorm:"size:8"`
	Nominal        int64      `gorm:"not null"`
	Deadline       time.Time  `gorm:"not null;index"`
	IsActive       bool       `gorm:"default:true;not null"`
	CreatedByID    uint       `gorm:"index;not null"`
	CreatedBy      User       `gorm:"foreignKey:CreatedByID"`
}
