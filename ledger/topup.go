package ledger

import (
	"errors"
	"fmt"
	"time"

	"kampuspay/models"

	"gorm.io/gorm"
)

// TopupResult reports the outcome of an approved top-up.
type TopupResult struct {
	NewBalance    int64
	TransactionID uint
}

// CreateTopup registers a PENDING top-up request. At most one PENDING
// request may exist per user; the check runs inside the transaction that
// inserts the row.
func (s *Service) CreateTopup(userID uint, amount int64, evidencePath string, detectedAmount int64, detectedConfidence float64) (*models.TopupRequest, error) {
	if amount <= 0 {
		return nil, errf(KindInvalidInput, "Nominal harus lebih dari 0")
	}
	var req models.TopupRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.TopupRequest{}).
			Where("user_id = ? AND status = ?", userID, models.TopupPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errf(KindAlreadyProcessed, "Masih ada request top-up yang pending")
		}
		req = models.TopupRequest{
			UserID:             userID,
			Amount:             amount,
			Status:             models.TopupPending,
			EvidencePath:       evidencePath,
			DetectedAmount:     detectedAmount,
			DetectedConfidence: detectedConfidence,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, wrap("create topup", err)
	}
	return &req, nil
}

// ApproveTopup settles a PENDING request: flips the status, credits the
// wallet (created lazily at 0) and appends the TOPUP transaction row, all
// inside one atomic transaction. The status flip is a conditional UPDATE on
// status = PENDING so a racing second approval fails with AlreadyProcessed
// instead of crediting twice.
func (s *Service) ApproveTopup(requestID, approverID uint) (*TopupResult, error) {
	var result TopupResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var req models.TopupRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errf(KindNotFound, "Request tidak ditemukan")
			}
			return err
		}
		if req.Status != models.TopupPending {
			return errf(KindAlreadyProcessed, "Request sudah diproses")
		}
		now := time.Now()
		res := tx.Model(&models.TopupRequest{}).
			Where("id = ? AND status = ?", requestID, models.TopupPending).
			Updates(map[string]any{
				"status":          models.TopupApproved,
				"validated_at":    now,
				"validated_by_id": approverID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errf(KindAlreadyProcessed, "Request sudah diproses")
		}

		bal, err := balanceOrZero(tx, req.UserID)
		if err != nil {
			return err
		}
		before := bal.Amount
		after := before + req.Amount
		if err := casBalance(tx, req.UserID, before, after); err != nil {
			return err
		}

		entry := models.Transaction{
			UserID:        req.UserID,
			Type:          models.TxTopup,
			Amount:        req.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Description:   "Top-up saldo disetujui",
			CreatedBy:     approverID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result = TopupResult{NewBalance: after, TransactionID: entry.ID}
		return nil
	})
	if err != nil {
		return nil, wrap("approve topup", err)
	}
	return &result, nil
}

// RejectTopup marks a PENDING request REJECTED with a mandatory reason.
// No balance is touched; the state is terminal.
func (s *Service) RejectTopup(requestID, approverID uint, reason string) error {
	if reason == "" {
		return errf(KindInvalidInput, "Alasan penolakan diperlukan")
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var req models.TopupRequest
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errf(KindNotFound, "Request tidak ditemukan")
			}
			return err
		}
		if req.Status != models.TopupPending {
			return errf(KindAlreadyProcessed, "Request sudah diproses")
		}
		now := time.Now()
		res := tx.Model(&models.TopupRequest{}).
			Where("id = ? AND status = ?", requestID, models.TopupPending).
			Updates(map[string]any{
				"status":           models.TopupRejected,
				"rejection_reason": reason,
				"validated_at":     now,
				"validated_by_id":  approverID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errf(KindAlreadyProcessed, "Request sudah diproses")
		}
		return nil
	})
	return wrap(fmt.Sprintf("reject topup %d", requestID), err)
}
