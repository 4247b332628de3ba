package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kampuspay/models"
)

func TestTransferConservesTotal(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	sender := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 50000)
	recipient := createStudent(t, db, "20230002", "Budi", "SI", "2023", -1) // no wallet row

	res, err := svc.Transfer(sender.ID, "20230002", 25000, testPin, "patungan")
	require.NoError(t, err)
	require.Equal(t, int64(25000), res.NewSenderBalance)
	require.Equal(t, "Budi", res.RecipientName)

	require.Equal(t, int64(25000), balanceOf(t, db, sender.ID))
	require.Equal(t, int64(25000), balanceOf(t, db, recipient.ID))

	var out, in models.Transaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", sender.ID, models.TxTransferOut).First(&out).Error)
	require.NoError(t, db.Where("user_id = ? AND type = ?", recipient.ID, models.TxTransferIn).First(&in).Error)
	require.Equal(t, recipient.ID, *out.RelatedUserID)
	require.Equal(t, sender.ID, *in.RelatedUserID)
	require.Equal(t, int64(50000), out.BalanceBefore)
	require.Equal(t, int64(25000), out.BalanceAfter)
	require.Equal(t, int64(0), in.BalanceBefore)
	require.Equal(t, int64(25000), in.BalanceAfter)
	require.Equal(t, sender.ID, in.CreatedBy)
}

func TestTransferValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	sender := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 50000)
	createStudent(t, db, "20230002", "Budi", "SI", "2023", 0)

	_, err := svc.Transfer(sender.ID, "20230001", 10000, testPin, "")
	require.True(t, IsKind(err, KindInvalidInput)) // self

	_, err = svc.Transfer(sender.ID, "20230002", 0, testPin, "")
	require.True(t, IsKind(err, KindInvalidInput))

	_, err = svc.Transfer(sender.ID, "20230002", 10000, "999999", "")
	require.True(t, IsKind(err, KindPinMismatch))

	_, err = svc.Transfer(sender.ID, "99999999", 10000, testPin, "")
	require.True(t, IsKind(err, KindNotFound))

	_, err = svc.Transfer(sender.ID, "20230002", 60000, testPin, "")
	require.True(t, IsKind(err, KindInsufficientFunds))
	require.Equal(t, int64(50000), balanceOf(t, db, sender.ID))
}

func TestTransferRejectsInactiveRecipient(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	sender := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 50000)
	recipient := createStudent(t, db, "20230002", "Budi", "SI", "2023", 0)
	require.NoError(t, db.Model(recipient).Update("is_active", false).Error)

	_, err := svc.Transfer(sender.ID, "20230002", 10000, testPin, "")
	require.True(t, IsKind(err, KindNotFound))

	// Soft-deleted recipients are equally invisible.
	require.NoError(t, db.Model(recipient).
		Updates(map[string]any{"is_active": true, "deleted_at": time.Now()}).Error)
	_, err = svc.Transfer(sender.ID, "20230002", 10000, testPin, "")
	require.True(t, IsKind(err, KindNotFound))
}

// The per-user transaction log must chain causally: each row's BalanceAfter
// is the next row's BalanceBefore, in creation order.
func TestTransactionCausalChain(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	admin := createAdmin(t, db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 0)
	createStudent(t, db, "20230002", "Budi", "TI", "2023", 0)
	bill := createTagihan(t, db, "TI", 15000, op.ID)

	req, err := svc.CreateTopup(u.ID, 100000, "", 0, 0)
	require.NoError(t, err)
	_, err = svc.ApproveTopup(req.ID, admin.ID)
	require.NoError(t, err)
	_, err = svc.PayBill(u.ID, bill.ID, testPin)
	require.NoError(t, err)
	_, err = svc.Transfer(u.ID, "20230002", 30000, testPin, "")
	require.NoError(t, err)

	var rows []models.Transaction
	require.NoError(t, db.Where("user_id = ?", u.ID).Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 3)
	require.Equal(t, int64(0), rows[0].BalanceBefore)
	for i := 1; i < len(rows); i++ {
		require.Equal(t, rows[i-1].BalanceAfter, rows[i].BalanceBefore,
			"row %d does not chain", i)
	}
	require.Equal(t, int64(55000), rows[len(rows)-1].BalanceAfter)
	require.Equal(t, int64(55000), balanceOf(t, db, u.ID))
}
