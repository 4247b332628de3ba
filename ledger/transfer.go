package ledger

import (
	"errors"

	"kampuspay/models"

	"gorm.io/gorm"
)

// TransferResult reports a completed peer transfer from the sender's side.
type TransferResult struct {
	NewSenderBalance int64
	TransactionID    uint
	RecipientName    string
}

// Transfer moves amount from the sender's wallet to another active USER
// account, atomically. The recipient's balance row is created at 0 when
// absent. Two transaction rows are appended: TRANSFER_OUT for the sender and
// TRANSFER_IN for the recipient, the latter with the recipient balance
// captured before this transfer's credit. Conservation holds: the sum of
// both wallets is unchanged.
func (s *Service) Transfer(senderID uint, toNIM string, amount int64, pin, note string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, errf(KindInvalidInput, "Nominal harus lebih dari 0")
	}

	var sender models.User
	if err := s.db.First(&sender, senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errf(KindNotFound, "Akun tidak ditemukan")
		}
		return nil, wrap("transfer: load sender", err)
	}
	if sender.Identifier == toNIM {
		return nil, errf(KindInvalidInput, "Tidak dapat transfer ke diri sendiri")
	}
	if err := verifyPin(&sender, pin); err != nil {
		return nil, err
	}

	var recipient models.User
	err := s.db.
		Where("identifier = ? AND role = ? AND is_active = ? AND deleted_at IS NULL",
			toNIM, models.RoleUser, true).
		First(&recipient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errf(KindNotFound, "NIM tujuan tidak ditemukan")
		}
		return nil, wrap("transfer: load recipient", err)
	}

	var result TransferResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		senderBal, err := balanceOrZero(tx, sender.ID)
		if err != nil {
			return err
		}
		if senderBal.Amount < amount {
			return errf(KindInsufficientFunds, "Saldo tidak mencukupi")
		}
		senderBefore := senderBal.Amount
		senderAfter := senderBefore - amount
		if err := casBalance(tx, sender.ID, senderBefore, senderAfter); err != nil {
			return err
		}

		recipientBal, err := balanceOrZero(tx, recipient.ID)
		if err != nil {
			return err
		}
		recipientBefore := recipientBal.Amount
		recipientAfter := recipientBefore + amount
		if err := casBalance(tx, recipient.ID, recipientBefore, recipientAfter); err != nil {
			return err
		}

		outDesc := "Transfer ke " + recipient.Name
		inDesc := "Transfer dari " + sender.Name
		if note != "" {
			outDesc += ": " + note
			inDesc += ": " + note
		}
		out := models.Transaction{
			UserID:        sender.ID,
			Type:          models.TxTransferOut,
			Amount:        amount,
			BalanceBefore: senderBefore,
			BalanceAfter:  senderAfter,
			Description:   outDesc,
			RelatedUserID: &recipient.ID,
			CreatedBy:     sender.ID,
		}
		if err := tx.Create(&out).Error; err != nil {
			return err
		}
		in := models.Transaction{
			UserID:        recipient.ID,
			Type:          models.TxTransferIn,
			Amount:        amount,
			BalanceBefore: recipientBefore,
			BalanceAfter:  recipientAfter,
			Description:   inDesc,
			RelatedUserID: &sender.ID,
			CreatedBy:     sender.ID,
		}
		if err := tx.Create(&in).Error; err != nil {
			return err
		}
		result = TransferResult{
			NewSenderBalance: senderAfter,
			TransactionID:    out.ID,
			RecipientName:    recipient.Name,
		}
		return nil
	})
	if err != nil {
		return nil, wrap("transfer", err)
	}
	return &result, nil
}
