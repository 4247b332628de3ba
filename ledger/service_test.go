package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kampuspay/models"
)

const testPin = "123456"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Balance{},
		&models.Transaction{},
		&models.TopupRequest{},
		&models.Tagihan{},
		&models.Pembayaran{},
		&models.ProdiSaldo{},
		&models.ProdiSaldoHistory{},
		&models.ProdiPengeluaran{},
	))
	return db
}

func hash(t *testing.T, plain string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func createStudent(t *testing.T, db *gorm.DB, nim, name, prodi, angkatan string, balance int64) *models.User {
	t.Helper()
	u := models.User{
		Identifier:   nim,
		Name:         name,
		Role:         models.RoleUser,
		Prodi:        &prodi,
		Angkatan:     &angkatan,
		PasswordHash: hash(t, "password123"),
		PinHash:      hash(t, testPin),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	if balance >= 0 {
		require.NoError(t, db.Create(&models.Balance{UserID: u.ID, Amount: balance}).Error)
	}
	return &u
}

func createOperator(t *testing.T, db *gorm.DB, identifier, prodi string) *models.User {
	t.Helper()
	u := models.User{
		Identifier:   identifier,
		Name:         "Operator " + prodi,
		Role:         models.RoleOperator,
		Prodi:        &prodi,
		PasswordHash: hash(t, "password123"),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func createAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := models.User{
		Identifier:   "ADM-00-2401",
		Name:         "Admin",
		Role:         models.RoleAdmin,
		PasswordHash: hash(t, "password123"),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func balanceOf(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var bal models.Balance
	require.NoError(t, db.Where("user_id = ?", userID).First(&bal).Error)
	return bal.Amount
}

func TestCasBalanceConflict(t *testing.T) {
	db := newTestDB(t)
	u := createStudent(t, db, "20230001", "A", "TI", "2023", 100)

	// A write based on a stale read must not go through.
	err := casBalance(db, u.ID, 50, 25)
	require.True(t, IsKind(err, KindConflict))
	require.Equal(t, int64(100), balanceOf(t, db, u.ID))

	require.NoError(t, casBalance(db, u.ID, 100, 75))
	require.Equal(t, int64(75), balanceOf(t, db, u.ID))
}

func TestBalanceOrZeroLazyCreate(t *testing.T) {
	db := newTestDB(t)
	u := createStudent(t, db, "20230001", "A", "TI", "2023", -1) // no balance row

	bal, err := balanceOrZero(db, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), bal.Amount)

	again, err := balanceOrZero(db, u.ID)
	require.NoError(t, err)
	require.Equal(t, bal.ID, again.ID)
}

func TestVerifyPin(t *testing.T) {
	db := newTestDB(t)
	u := createStudent(t, db, "20230001", "A", "TI", "2023", 0)

	require.NoError(t, verifyPin(u, testPin))
	require.True(t, IsKind(verifyPin(u, "000000"), KindPinMismatch))

	u.PinHash = nil
	require.True(t, IsKind(verifyPin(u, testPin), KindInvalidInput))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(gorm.ErrInvalidData))
	require.Equal(t, KindNotFound, KindOf(errf(KindNotFound, "x")))
}
