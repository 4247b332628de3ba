package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kampuspay/models"
)

func TestCreateTopupRejectsSecondPending(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 0)

	req, err := svc.CreateTopup(u.ID, 100000, "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, models.TopupPending, req.Status)

	_, err = svc.CreateTopup(u.ID, 50000, "", 0, 0)
	require.True(t, IsKind(err, KindAlreadyProcessed))

	_, err = svc.CreateTopup(u.ID, 0, "", 0, 0)
	require.True(t, IsKind(err, KindInvalidInput))
}

func TestApproveTopupCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 50000)
	admin := createAdmin(t, db)

	req, err := svc.CreateTopup(u.ID, 100000, "", 0, 0)
	require.NoError(t, err)

	res, err := svc.ApproveTopup(req.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150000), res.NewBalance)
	require.Equal(t, int64(150000), balanceOf(t, db, u.ID))

	var entry models.Transaction
	require.NoError(t, db.First(&entry, res.TransactionID).Error)
	require.Equal(t, models.TxTopup, entry.Type)
	require.Equal(t, int64(50000), entry.BalanceBefore)
	require.Equal(t, int64(150000), entry.BalanceAfter)
	require.Equal(t, admin.ID, entry.CreatedBy)

	var stored models.TopupRequest
	require.NoError(t, db.First(&stored, req.ID).Error)
	require.Equal(t, models.TopupApproved, stored.Status)
	require.NotNil(t, stored.ValidatedAt)
	require.Equal(t, admin.ID, *stored.ValidatedByID)

	// Approving again must not credit a second time.
	_, err = svc.ApproveTopup(req.ID, admin.ID)
	require.True(t, IsKind(err, KindAlreadyProcessed))
	require.Equal(t, int64(150000), balanceOf(t, db, u.ID))
}

func TestApproveTopupCreatesMissingBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", -1) // no wallet row yet
	admin := createAdmin(t, db)

	req, err := svc.CreateTopup(u.ID, 75000, "", 0, 0)
	require.NoError(t, err)

	res, err := svc.ApproveTopup(req.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, int64(75000), res.NewBalance)
	require.Equal(t, int64(75000), balanceOf(t, db, u.ID))
}

func TestRejectTopupIsTerminal(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 0)
	admin := createAdmin(t, db)

	req, err := svc.CreateTopup(u.ID, 100000, "", 0, 0)
	require.NoError(t, err)

	require.True(t, IsKind(svc.RejectTopup(req.ID, admin.ID, ""), KindInvalidInput))
	require.NoError(t, svc.RejectTopup(req.ID, admin.ID, "Bukti transfer tidak terbaca"))

	var stored models.TopupRequest
	require.NoError(t, db.First(&stored, req.ID).Error)
	require.Equal(t, models.TopupRejected, stored.Status)
	require.Equal(t, "Bukti transfer tidak terbaca", *stored.RejectionReason)

	// Terminal: neither a second reject nor a late approve may land.
	require.True(t, IsKind(svc.RejectTopup(req.ID, admin.ID, "lagi"), KindAlreadyProcessed))
	_, err = svc.ApproveTopup(req.ID, admin.ID)
	require.True(t, IsKind(err, KindAlreadyProcessed))
	require.Equal(t, int64(0), balanceOf(t, db, u.ID))

	// A rejected request frees the one-pending slot.
	_, err = svc.CreateTopup(u.ID, 100000, "", 0, 0)
	require.NoError(t, err)
}

func TestApproveTopupNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	admin := createAdmin(t, db)

	_, err := svc.ApproveTopup(9999, admin.ID)
	require.True(t, IsKind(err, KindNotFound))
	require.True(t, IsKind(svc.RejectTopup(9999, admin.ID, "alasan"), KindNotFound))
}

func TestCreateTopupKeepsDetectedAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 0)

	// Detected amount disagreeing with the claim is stored, never enforced.
	req, err := svc.CreateTopup(u.ID, 100000, "uploads/evidence/x.png", 95000, 0.8)
	require.NoError(t, err)
	require.Equal(t, int64(100000), req.Amount)
	require.Equal(t, int64(95000), req.DetectedAmount)
	require.InDelta(t, 0.8, req.DetectedConfidence, 1e-9)
}
