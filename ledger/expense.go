package ledger

import (
	"errors"
	"strings"

	"kampuspay/models"

	"gorm.io/gorm"
)

// ExpenseResult reports a recorded department expense.
type ExpenseResult struct {
	PengeluaranID uint
	NewBalance    int64
}

// RecordExpense debits a prodi balance and writes the expense row, atomic.
// The decrement is guarded by a total_balance >= amount condition so a
// racing expense cannot drive the balance negative. Operators may only spend
// their own prodi's funds; admins may spend any. Expenses never appear in
// the per-user transaction log, only in the department ledger.
func (s *Service) RecordExpense(operatorID uint, prodi string, amount int64, description string) (*ExpenseResult, error) {
	if amount <= 0 {
		return nil, errf(KindInvalidInput, "Jumlah harus lebih dari 0")
	}
	description = strings.TrimSpace(description)
	if len(description) < 3 {
		return nil, errf(KindInvalidInput, "Deskripsi wajib diisi (min. 3 karakter)")
	}

	var operator models.User
	if err := s.db.First(&operator, operatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errf(KindNotFound, "Akun tidak ditemukan")
		}
		return nil, wrap("record expense: load operator", err)
	}
	if operator.Role != models.RoleAdmin {
		if operator.Prodi == nil || *operator.Prodi != prodi {
			return nil, errf(KindForbidden, "Tidak dapat menggunakan dana prodi lain")
		}
	}

	var result ExpenseResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var saldo models.ProdiSaldo
		err := tx.Where("prodi = ?", prodi).First(&saldo).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errf(KindInsufficientDepartmentFunds, "Saldo prodi tidak mencukupi")
			}
			return err
		}
		if saldo.TotalBalance < amount {
			return errf(KindInsufficientDepartmentFunds, "Saldo prodi tidak mencukupi")
		}
		res := tx.Model(&models.ProdiSaldo{}).
			Where("prodi = ? AND total_balance >= ?", prodi, amount).
			Update("total_balance", gorm.Expr("total_balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errf(KindConflict, "Saldo prodi berubah saat diproses, coba lagi")
		}

		expense := models.ProdiPengeluaran{
			Prodi:       prodi,
			Amount:      amount,
			Description: description,
			CreatedByID: operatorID,
		}
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}

		var after models.ProdiSaldo
		if err := tx.Where("prodi = ?", prodi).First(&after).Error; err != nil {
			return err
		}
		result = ExpenseResult{PengeluaranID: expense.ID, NewBalance: after.TotalBalance}
		return nil
	})
	if err != nil {
		return nil, wrap("record expense", err)
	}
	return &result, nil
}
