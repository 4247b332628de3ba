package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kampuspay/models"
)

func createTagihan(t *testing.T, db *gorm.DB, prodi string, nominal int64, createdBy uint) *models.Tagihan {
	t.Helper()
	bill := models.Tagihan{
		Title:       "Kas Bulanan",
		Jenis:       models.JenisKas,
		ProdiTarget: &prodi,
		Nominal:     nominal,
		Deadline:    time.Now().AddDate(0, 1, 0),
		IsActive:    true,
		CreatedByID: createdBy,
	}
	require.NoError(t, db.Create(&bill).Error)
	return &bill
}

func prodiBalance(t *testing.T, db *gorm.DB, prodi string) int64 {
	t.Helper()
	var saldo models.ProdiSaldo
	if err := db.Where("prodi = ?", prodi).First(&saldo).Error; err != nil {
		return 0
	}
	return saldo.TotalBalance
}

func TestPayBillSettlesAllThreeLedgers(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 150000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	res, err := svc.PayBill(u.ID, bill.ID, testPin)
	require.NoError(t, err)
	require.Equal(t, int64(125000), res.NewBalance)
	require.Equal(t, int64(125000), balanceOf(t, db, u.ID))
	require.Equal(t, int64(25000), prodiBalance(t, db, "TI"))

	var pay models.Pembayaran
	require.NoError(t, db.First(&pay, res.PembayaranID).Error)
	require.Equal(t, models.PaymentSuccess, pay.Status)
	require.NotNil(t, pay.PaidAt)

	var entry models.Transaction
	require.NoError(t, db.First(&entry, res.TransactionID).Error)
	require.Equal(t, models.TxPayment, entry.Type)
	require.Equal(t, int64(150000), entry.BalanceBefore)
	require.Equal(t, int64(125000), entry.BalanceAfter)

	now := time.Now()
	var hist models.ProdiSaldoHistory
	require.NoError(t, db.Where("prodi = ? AND month = ? AND year = ?",
		"TI", int(now.Month()), now.Year()).First(&hist).Error)
	require.Equal(t, int64(25000), hist.Income)
}

func TestPayBillExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 100000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	_, err := svc.PayBill(u.ID, bill.ID, testPin)
	require.NoError(t, err)

	_, err = svc.PayBill(u.ID, bill.ID, testPin)
	require.True(t, IsKind(err, KindAlreadyProcessed))

	// One debit, one prodi credit, one payment transaction.
	require.Equal(t, int64(75000), balanceOf(t, db, u.ID))
	require.Equal(t, int64(25000), prodiBalance(t, db, "TI"))
	var count int64
	db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", u.ID, models.TxPayment).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestPayBillPreconditionOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 10000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	// Wrong PIN is reported before anything about the bill.
	_, err := svc.PayBill(u.ID, 9999, "000000")
	require.True(t, IsKind(err, KindPinMismatch))

	_, err = svc.PayBill(u.ID, 9999, testPin)
	require.True(t, IsKind(err, KindNotFound))

	// Insufficient funds after all identity checks pass.
	_, err = svc.PayBill(u.ID, bill.ID, testPin)
	require.True(t, IsKind(err, KindInsufficientFunds))
	require.Equal(t, int64(10000), balanceOf(t, db, u.ID))

	// No PIN set at all.
	noPin := createStudent(t, db, "20230002", "Budi", "TI", "2023", 100000)
	require.NoError(t, db.Model(noPin).Update("pin_hash", nil).Error)
	_, err = svc.PayBill(noPin.ID, bill.ID, testPin)
	require.True(t, IsKind(err, KindInvalidInput))
}

func TestPayBillInactiveTagihan(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 100000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)
	require.NoError(t, db.Model(bill).Update("is_active", false).Error)

	_, err := svc.PayBill(u.ID, bill.ID, testPin)
	require.True(t, IsKind(err, KindInvalidInput))
	require.Equal(t, int64(100000), balanceOf(t, db, u.ID))
}

func TestPayBillFailureLeavesNoPartialState(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 10000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	_, err := svc.PayBill(u.ID, bill.ID, testPin)
	require.True(t, IsKind(err, KindInsufficientFunds))

	var payments, entries int64
	db.Model(&models.Pembayaran{}).Count(&payments)
	db.Model(&models.Transaction{}).Count(&entries)
	require.Zero(t, payments)
	require.Zero(t, entries)
	require.Equal(t, int64(0), prodiBalance(t, db, "TI"))
}

// Two racing payments of the same bill by the same user: exactly one may
// settle. The loser is turned away by the in-transaction status re-check or
// the guarded balance update, never by a silent lost update.
func TestPayBillConcurrentDoublePay(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 100000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PayBill(u.ID, bill.ID, testPin)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	settled, blocked := 0, 0
	for err := range errs {
		if err == nil {
			settled++
			continue
		}
		require.True(t,
			IsKind(err, KindAlreadyProcessed) || IsKind(err, KindConflict),
			"unexpected error: %v", err)
		blocked++
	}
	require.Equal(t, 1, settled)
	require.Equal(t, 1, blocked)

	// Single debit, single SUCCESS row, single payment transaction.
	require.Equal(t, int64(75000), balanceOf(t, db, u.ID))
	var success, entries int64
	db.Model(&models.Pembayaran{}).
		Where("tagihan_id = ? AND user_id = ? AND status = ?",
			bill.ID, u.ID, models.PaymentSuccess).Count(&success)
	db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", u.ID, models.TxPayment).Count(&entries)
	require.Equal(t, int64(1), success)
	require.Equal(t, int64(1), entries)
}

// The (tagihan, user) unique index is the settle-exactly-once backstop; a
// duplicate insert must classify as a unique violation so PayBill maps it to
// CONFLICT rather than a server error.
func TestDuplicatePembayaranIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)

	first := models.Pembayaran{TagihanID: 1, UserID: 1, Status: models.PaymentSuccess}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Pembayaran{TagihanID: 1, UserID: 1, Status: models.PaymentPending}
	err := db.Create(&dup).Error
	require.Error(t, err)
	require.True(t, isUniqueViolation(err), "got: %v", err)
}

func TestPayBillRetriesFailedPayment(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	op := createOperator(t, db, "OP-TI-2401", "TI")
	u := createStudent(t, db, "20230001", "Ahmad", "TI", "2023", 100000)
	bill := createTagihan(t, db, "TI", 25000, op.ID)

	// A FAILED row from an earlier attempt is flipped to SUCCESS, not
	// duplicated: the unique (tagihan, user) pair stays single-row.
	failed := models.Pembayaran{TagihanID: bill.ID, UserID: u.ID, Status: models.PaymentFailed}
	require.NoError(t, db.Create(&failed).Error)

	res, err := svc.PayBill(u.ID, bill.ID, testPin)
	require.NoError(t, err)
	require.Equal(t, failed.ID, res.PembayaranID)

	var count int64
	db.Model(&models.Pembayaran{}).
		Where("tagihan_id = ? AND user_id = ?", bill.ID, u.ID).Count(&count)
	require.Equal(t, int64(1), count)
}
