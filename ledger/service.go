package ledger

import (
	"errors"
	"log"
	"strings"

	"kampuspay/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service coordinates every balance-mutating operation. All four operations
// run inside a single store transaction; balance rows are updated with
// guarded writes so a concurrent modification fails closed as KindConflict
// instead of losing an update.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// verifyPin checks the transaction PIN against the stored bcrypt hash.
// The error does not reveal whether the account exists.
func verifyPin(u *models.User, pin string) error {
	if len(u.PinHash) == 0 {
		return errf(KindInvalidInput, "PIN belum diatur")
	}
	if err := bcrypt.CompareHashAndPassword(u.PinHash, []byte(pin)); err != nil {
		return errf(KindPinMismatch, "PIN salah")
	}
	return nil
}

// balanceOrZero loads the wallet row for a user inside tx, creating it at 0
// when absent. A creation race against a concurrent request surfaces as
// KindConflict via the unique index on user_id.
func balanceOrZero(tx *gorm.DB, userID uint) (*models.Balance, error) {
	var bal models.Balance
	err := tx.Where("user_id = ?", userID).First(&bal).Error
	if err == nil {
		return &bal, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	bal = models.Balance{UserID: userID, Amount: 0}
	if err := tx.Create(&bal).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errf(KindConflict, "saldo sedang diproses, coba lagi")
		}
		return nil, err
	}
	return &bal, nil
}

// casBalance applies a guarded balance write: the UPDATE only matches while
// the row still holds the amount read earlier in this transaction. Zero rows
// affected means a concurrent writer got there first.
func casBalance(tx *gorm.DB, userID uint, before, after int64) error {
	res := tx.Model(&models.Balance{}).
		Where("user_id = ? AND amount = ?", userID, before).
		Update("amount", after)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errf(KindConflict, "saldo berubah saat diproses, coba lagi")
	}
	return nil
}

// isUniqueViolation matches duplicate-key errors across postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "unique constraint")
}

// wrap ensures errors leaving the service carry a kind; anything unexpected
// from the store is logged and becomes KindInternal without leaking
// internals upward.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	log.Printf("ledger: %s: %v", op, err)
	return errf(KindInternal, "terjadi kesalahan server")
}
