package main

import (
	"log"
	"os"
	"strings"

	"kampuspay/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openDB connects to Postgres using DB_DSN and, unless disabled via
// DB_AUTO_MIGRATE, runs schema migration and seeding.
func openDB() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database: ", err)
	}
	shouldMigrate := true
	if v := strings.ToLower(os.Getenv("DB_AUTO_MIGRATE")); v == "false" || v == "0" || v == "no" {
		shouldMigrate = false
	}
	if shouldMigrate {
		autoMigrate(db)
		seedDB(db)
	}
	return db
}

// autoMigrate migrates models individually so a failure on one does not
// block the others.
func autoMigrate(db *gorm.DB) {
	for name, model := range map[string]any{
		"users":                &models.User{},
		"balances":             &models.Balance{},
		"transactions":         &models.Transaction{},
		"topup_requests":       &models.TopupRequest{},
		"tagihans":             &models.Tagihan{},
		"pembayarans":          &models.Pembayaran{},
		"prodi_saldos":         &models.ProdiSaldo{},
		"prodi_saldo_histories": &models.ProdiSaldoHistory{},
		"prodi_pengeluarans":   &models.ProdiPengeluaran{},
		"audit_logs":           &models.AuditLog{},
		"refresh_tokens":       &models.RefreshToken{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("migration warning (%s): %v", name, err)
		}
	}
}

func mustHash(plain string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	return h
}

func strPtr(s string) *string { return &s }

// seedDB creates the initial accounts when the users table is empty: one
// admin, one operator per seeded prodi, and a pair of students with starting
// balances and a default PIN. Idempotent: existing identifiers are left
// untouched.
func seedDB(db *gorm.DB) {
	passwordHash := mustHash("password123")
	pinHash := mustHash("123456")

	seeds := []struct {
		user    models.User
		balance int64
	}{
		{user: models.User{Identifier: "ADM-00-2401", Name: "Administrator Sistem", Role: models.RoleAdmin, PasswordHash: passwordHash, IsActive: true}},
		{user: models.User{Identifier: "OP-TI-2401", Name: "Operator Teknik Informatika", Role: models.RoleOperator, Prodi: strPtr("TI"), PasswordHash: passwordHash, IsActive: true}},
		{user: models.User{Identifier: "OP-SI-2401", Name: "Operator Sistem Informasi", Role: models.RoleOperator, Prodi: strPtr("SI"), PasswordHash: passwordHash, IsActive: true}},
		{user: models.User{Identifier: "20230001", Name: "Ahmad Fauzi", Role: models.RoleUser, Prodi: strPtr("TI"), Angkatan: strPtr("2023"), PasswordHash: passwordHash, PinHash: pinHash, IsActive: true}, balance: 150000},
		{user: models.User{Identifier: "20230002", Name: "Budi Santoso", Role: models.RoleUser, Prodi: strPtr("SI"), Angkatan: strPtr("2023"), PasswordHash: passwordHash, PinHash: pinHash, IsActive: true}, balance: 75000},
	}
	for _, s := range seeds {
		var count int64
		db.Model(&models.User{}).Where("identifier = ?", s.user.Identifier).Count(&count)
		if count > 0 {
			continue
		}
		u := s.user
		if err := db.Create(&u).Error; err != nil {
			log.Printf("seed warning (%s): %v", u.Identifier, err)
			continue
		}
		if u.Role == models.RoleUser {
			if err := db.Create(&models.Balance{UserID: u.ID, Amount: s.balance}).Error; err != nil {
				log.Printf("seed warning (balance %s): %v", u.Identifier, err)
			}
		}
		log.Printf("Seeded %s user: identifier=%s password=password123", u.Role, u.Identifier)
	}
}
