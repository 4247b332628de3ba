package main

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"kampuspay/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	nimRE      = regexp.MustCompile(`^\d{8}$`)
	operatorRE = regexp.MustCompile(`^OP-[A-Z]{2,3}-\d{4}$`)
	adminRE    = regexp.MustCompile(`^ADM-\d{2}-\d{4}$`)
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: go run ./cmd/create_user <identifier> <name> <password> [prodi] [angkatan]")
		fmt.Println("  identifier format decides the role: 8-digit NIM, OP-XX-NNNN, or ADM-NN-NNNN")
		os.Exit(2)
	}
	identifier := os.Args[1]
	name := os.Args[2]
	password := os.Args[3]

	var role string
	switch {
	case nimRE.MatchString(identifier):
		role = models.RoleUser
	case operatorRE.MatchString(identifier):
		role = models.RoleOperator
	case adminRE.MatchString(identifier):
		role = models.RoleAdmin
	default:
		log.Fatalf("identifier %q matches no known format", identifier)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	var existing models.User
	if err := db.Where("identifier = ?", identifier).First(&existing).Error; err == nil {
		fmt.Printf("account %s already exists (id=%d)\n", identifier, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	user := models.User{
		Identifier:   identifier,
		Name:         name,
		Role:         role,
		PasswordHash: hpw,
		IsActive:     true,
	}
	if len(os.Args) > 4 && os.Args[4] != "" {
		prodi := os.Args[4]
		user.Prodi = &prodi
	}
	if len(os.Args) > 5 && os.Args[5] != "" {
		angkatan := os.Args[5]
		user.Angkatan = &angkatan
	}
	if user.Role == models.RoleOperator && user.Prodi == nil {
		log.Fatal("operators require a prodi argument")
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create account: %v", err)
	}
	if user.Role == models.RoleUser {
		if err := db.Create(&models.Balance{UserID: user.ID, Amount: 0}).Error; err != nil {
			log.Printf("warning: failed to create balance: %v", err)
		}
	}
	fmt.Printf("created %s account %s id=%d\n", role, identifier, user.ID)
}
