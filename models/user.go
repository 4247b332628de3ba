package models

import "time"

// Role values stored on User. Hierarchy: ADMIN > OPERATOR > USER.
const (
	RoleUser     = "USER"
	RoleOperator = "OPERATOR"
	RoleAdmin    = "ADMIN"
)

// User is an account holder. The identifier encodes the role:
// 8-digit NIM for students, OP-XX-NNNN for operators, ADM-NN-NNNN for admins.
type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	// Soft delete: DeletedAt set and IsActive false; rows are only hard-deleted
	// by the explicit admin cascade.
	DeletedAt          *time.Time `gorm:"index"`
	Identifier         string     `gorm:"size:32;not null;uniqueIndex"`
	Name               string     `gorm:"size:255;not null"`
	Role               string     `gorm:"size:16;not null;index"`
	Prodi              *string    `gorm:"size:64;index"`
	Angkatan           *string    `gorm:"size:8"`
	PasswordHash       []byte     `gorm:"not null"`
	PinHash            []byte     // nil until the user sets a transaction PIN
	IsActive           bool       `gorm:"default:true;not null"`
	MustChangePassword bool       `gorm:"default:false;not null"`
	Balance            *Balance   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
