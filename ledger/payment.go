package ledger

import (
	"errors"
	"time"

	"kampuspay/models"

	"gorm.io/gorm"
)

// PaymentResult reports a settled bill payment.
type PaymentResult struct {
	NewBalance    int64
	PembayaranID  uint
	TransactionID uint
}

// PayBill settles a tagihan for one user. Precondition order is fixed: PIN
// set, PIN match, bill active, not already paid, balance sufficient — each a
// distinct error kind. The settlement itself moves three ledgers together
// (user balance, pembayaran row, prodi saldo) inside one transaction; a
// crash between debit and prodi credit must be impossible to observe.
func (s *Service) PayBill(userID, tagihanID uint, pin string) (*PaymentResult, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errf(KindNotFound, "Akun tidak ditemukan")
		}
		return nil, wrap("pay bill: load user", err)
	}
	if err := verifyPin(&user, pin); err != nil {
		return nil, err
	}

	var tagihan models.Tagihan
	if err := s.db.First(&tagihan, tagihanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errf(KindNotFound, "Tagihan tidak ditemukan")
		}
		return nil, wrap("pay bill: load tagihan", err)
	}
	if !tagihan.IsActive || tagihan.DeletedAt != nil {
		return nil, errf(KindInvalidInput, "Tagihan sudah tidak aktif")
	}

	var result PaymentResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check settlement status inside the transaction; the unique
		// (tagihan, user) index is the backstop if two requests race past it.
		var existing models.Pembayaran
		err := tx.Where("tagihan_id = ? AND user_id = ?", tagihanID, userID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		found := err == nil
		if found && existing.Status == models.PaymentSuccess {
			return errf(KindAlreadyProcessed, "Tagihan sudah dibayar")
		}

		bal, err := balanceOrZero(tx, userID)
		if err != nil {
			return err
		}
		if bal.Amount < tagihan.Nominal {
			return errf(KindInsufficientFunds, "Saldo tidak mencukupi")
		}
		before := bal.Amount
		after := before - tagihan.Nominal
		if err := casBalance(tx, userID, before, after); err != nil {
			return err
		}

		now := time.Now()
		if found {
			res := tx.Model(&models.Pembayaran{}).
				Where("id = ? AND status <> ?", existing.ID, models.PaymentSuccess).
				Updates(map[string]any{"status": models.PaymentSuccess, "paid_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errf(KindAlreadyProcessed, "Tagihan sudah dibayar")
			}
		} else {
			existing = models.Pembayaran{
				TagihanID: tagihanID,
				UserID:    userID,
				Status:    models.PaymentSuccess,
				PaidAt:    &now,
			}
			if err := tx.Create(&existing).Error; err != nil {
				if isUniqueViolation(err) {
					return errf(KindConflict, "Pembayaran sedang diproses, coba lagi")
				}
				return err
			}
		}

		entry := models.Transaction{
			UserID:        userID,
			Type:          models.TxPayment,
			Amount:        tagihan.Nominal,
			BalanceBefore: before,
			BalanceAfter:  after,
			Description:   "Pembayaran: " + tagihan.Title,
			CreatedBy:     userID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if tagihan.ProdiTarget != nil {
			if err := creditProdi(tx, *tagihan.ProdiTarget, tagihan.Nominal, now); err != nil {
				return err
			}
		}

		result = PaymentResult{
			NewBalance:    after,
			PembayaranID:  existing.ID,
			TransactionID: entry.ID,
		}
		return nil
	})
	if err != nil {
		return nil, wrap("pay bill", err)
	}
	return &result, nil
}

// creditProdi adds income to the prodi balance (lazy-created at 0) and the
// monthly history bucket used by trend reports.
func creditProdi(tx *gorm.DB, prodi string, nominal int64, now time.Time) error {
	res := tx.Model(&models.ProdiSaldo{}).
		Where("prodi = ?", prodi).
		Update("total_balance", gorm.Expr("total_balance + ?", nominal))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&models.ProdiSaldo{Prodi: prodi, TotalBalance: nominal}).Error; err != nil {
			if !isUniqueViolation(err) {
				return err
			}
			// lost the creation race; fall back to the increment
			res = tx.Model(&models.ProdiSaldo{}).
				Where("prodi = ?", prodi).
				Update("total_balance", gorm.Expr("total_balance + ?", nominal))
			if res.Error != nil {
				return res.Error
			}
		}
	}

	month := int(now.Month())
	year := now.Year()
	res = tx.Model(&models.ProdiSaldoHistory{}).
		Where("prodi = ? AND month = ? AND year = ?", prodi, month, year).
		Updates(map[string]any{
			"income":  gorm.Expr("income + ?", nominal),
			"balance": gorm.Expr("balance + ?", nominal),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		hist := models.ProdiSaldoHistory{
			Prodi: prodi, Month: month, Year: year,
			Income: nominal, Balance: nominal,
		}
		if err := tx.Create(&hist).Error; err != nil && !isUniqueViolation(err) {
			return err
		}
	}
	return nil
}
