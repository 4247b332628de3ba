package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kampuspay/audit"
	"kampuspay/models"
)

// operatorProdi resolves which prodi the caller operates on. Operators are
// pinned to their own prodi; admins pass ?prodi= to pick one.
func operatorProdi(c *gin.Context) (string, bool) {
	if c.GetString("role") == models.RoleAdmin {
		prodi := c.Query("prodi")
		return prodi, prodi != ""
	}
	prodi := c.GetString("prodi")
	return prodi, prodi != ""
}

func (a *App) handleOperatorTagihanList(c *gin.Context) {
	page, limit := pagination(c)
	q := a.db.Model(&models.Tagihan{}).Where("deleted_at IS NULL")
	if c.GetString("role") != models.RoleAdmin {
		q = q.Where("prodi_target = ?", c.GetString("prodi"))
	} else if prodi := c.Query("prodi"); prodi != "" {
		q = q.Where("prodi_target = ?", prodi)
	}
	var total int64
	q.Count(&total)

	var bills []models.Tagihan
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&bills).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}

	out := make([]gin.H, 0, len(bills))
	for _, b := range bills {
		var paidCount int64
		a.db.Model(&models.Pembayaran{}).
			Where("tagihan_id = ? AND status = ?", b.ID, models.PaymentSuccess).
			Count(&paidCount)
		out = append(out, gin.H{
			"id":             b.ID,
			"title":          b.Title,
			"description":    b.Description,
			"jenis":          b.Jenis,
			"prodiTarget":    b.ProdiTarget,
			"angkatanTarget": b.AngkatanTarget,
			"nominal":        b.Nominal,
			"deadline":       b.Deadline,
			"isActive":       b.IsActive,
			"paidCount":      paidCount,
			"collected":      paidCount * b.Nominal,
		})
	}
	paginated(c, out, total, page, limit)
}

type tagihanRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Jenis          string `json:"jenis" binding:"required"`
	AngkatanTarget string `json:"angkatanTarget"`
	Nominal        int64  `json:"nominal" binding:"required"`
	Deadline       string `json:"deadline" binding:"required"`
	ProdiTarget    string `json:"prodiTarget"` // admin only; operators are pinned
}

func validJenis(j string) bool {
	switch j {
	case models.JenisKas, models.JenisAcara, models.JenisSeminar, models.JenisOther:
		return true
	}
	return false
}

func (a *App) handleOperatorTagihanCreate(c *gin.Context) {
	var req tagihanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "title, jenis, nominal dan deadline wajib diisi")
		return
	}
	if !validJenis(req.Jenis) {
		fail(c, http.StatusBadRequest, "Jenis tagihan tidak valid")
		return
	}
	if req.Nominal <= 0 {
		fail(c, http.StatusBadRequest, "Nominal harus lebih dari 0")
		return
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		fail(c, http.StatusBadRequest, "Format deadline tidak valid (RFC3339)")
		return
	}

	prodi := c.GetString("prodi")
	if c.GetString("role") == models.RoleAdmin {
		prodi = req.ProdiTarget
	}
	bill := models.Tagihan{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Jenis:       req.Jenis,
		Nominal:     req.Nominal,
		Deadline:    deadline,
		IsActive:    true,
		CreatedByID: c.GetUint("userID"),
	}
	if prodi != "" {
		bill.ProdiTarget = &prodi
	}
	if req.AngkatanTarget != "" {
		bill.AngkatanTarget = &req.AngkatanTarget
	}
	if err := a.db.Create(&bill).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionTagihanCreated, audit.Detail{
		"tagihanId": bill.ID,
		"nominal":   bill.Nominal,
	}, c.ClientIP())
	okMsg(c, "Tagihan dibuat", bill)
}

// loadOwnTagihan fetches a bill and enforces that non-admin callers only
// touch bills of their own prodi.
func (a *App) loadOwnTagihan(c *gin.Context) (*models.Tagihan, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "ID tagihan tidak valid")
		return nil, false
	}
	var bill models.Tagihan
	if err := a.db.Where("id = ? AND deleted_at IS NULL", id).First(&bill).Error; err != nil {
		fail(c, http.StatusNotFound, "Tagihan tidak ditemukan")
		return nil, false
	}
	if c.GetString("role") != models.RoleAdmin {
		own := c.GetString("prodi")
		if bill.ProdiTarget == nil || *bill.ProdiTarget != own {
			fail(c, http.StatusForbidden, "Tidak dapat mengelola tagihan prodi lain")
			return nil, false
		}
	}
	return &bill, true
}

func (a *App) handleOperatorTagihanUpdate(c *gin.Context) {
	bill, found := a.loadOwnTagihan(c)
	if !found {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Nominal     *int64  `json:"nominal"`
		Deadline    *string `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "payload tidak valid")
		return
	}
	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Nominal != nil {
		if *req.Nominal <= 0 {
			fail(c, http.StatusBadRequest, "Nominal harus lebih dari 0")
			return
		}
		var paidCount int64
		a.db.Model(&models.Pembayaran{}).
			Where("tagihan_id = ? AND status = ?", bill.ID, models.PaymentSuccess).
			Count(&paidCount)
		if paidCount > 0 {
			fail(c, http.StatusConflict, "Nominal tidak dapat diubah setelah ada pembayaran")
			return
		}
		updates["nominal"] = *req.Nominal
	}
	if req.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			fail(c, http.StatusBadRequest, "Format deadline tidak valid (RFC3339)")
			return
		}
		updates["deadline"] = deadline
	}
	if len(updates) == 0 {
		okMsg(c, "Tidak ada perubahan", bill)
		return
	}
	if err := a.db.Model(bill).Updates(updates).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionTagihanUpdated, audit.Detail{"tagihanId": bill.ID}, c.ClientIP())
	okMsg(c, "Tagihan diperbarui", bill)
}

func (a *App) handleOperatorTagihanDelete(c *gin.Context) {
	bill, found := a.loadOwnTagihan(c)
	if !found {
		return
	}
	now := time.Now()
	if err := a.db.Model(bill).Updates(map[string]any{"deleted_at": now, "is_active": false}).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionTagihanDeleted, audit.Detail{"tagihanId": bill.ID}, c.ClientIP())
	okMsg(c, "Tagihan dihapus", nil)
}

// handleOperatorTagihanDeactivate stops further payments without deleting
// history. Settled payments stay settled.
func (a *App) handleOperatorTagihanDeactivate(c *gin.Context) {
	bill, found := a.loadOwnTagihan(c)
	if !found {
		return
	}
	if err := a.db.Model(bill).Update("is_active", false).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionTagihanStatusChanged, audit.Detail{
		"tagihanId": bill.ID,
		"isActive":  false,
	}, c.ClientIP())
	okMsg(c, "Tagihan dinonaktifkan", nil)
}

func (a *App) handleProdiSaldo(c *gin.Context) {
	prodi, found := operatorProdi(c)
	if !found {
		fail(c, http.StatusBadRequest, "prodi wajib ditentukan")
		return
	}
	var saldo models.ProdiSaldo
	amount := int64(0)
	if err := a.db.Where("prodi = ?", prodi).First(&saldo).Error; err == nil {
		amount = saldo.TotalBalance
	}
	var totalExpense int64
	a.db.Model(&models.ProdiPengeluaran{}).Where("prodi = ?", prodi).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalExpense)
	ok(c, gin.H{"prodi": prodi, "totalBalance": amount, "totalExpense": totalExpense})
}

func (a *App) handlePengeluaranList(c *gin.Context) {
	prodi, found := operatorProdi(c)
	if !found {
		fail(c, http.StatusBadRequest, "prodi wajib ditentukan")
		return
	}
	page, limit := pagination(c)
	q := a.db.Model(&models.ProdiPengeluaran{}).Where("prodi = ?", prodi)
	var total int64
	q.Count(&total)

	var rows []models.ProdiPengeluaran
	if err := q.Preload("CreatedBy").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"id":          r.ID,
			"amount":      r.Amount,
			"description": r.Description,
			"createdAt":   r.CreatedAt,
			"createdBy":   r.CreatedBy.Name,
		})
	}
	paginated(c, out, total, page, limit)
}

type pengeluaranRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
	Prodi       string `json:"prodi"` // admin only
}

func (a *App) handlePengeluaranCreate(c *gin.Context) {
	var req pengeluaranRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "amount dan description wajib diisi")
		return
	}
	prodi := c.GetString("prodi")
	if req.Prodi != "" {
		// The ledger rejects a non-admin spending another prodi's funds.
		prodi = req.Prodi
	}
	res, err := a.ledger.RecordExpense(c.GetUint("userID"), prodi, req.Amount, req.Description)
	if err != nil {
		failErr(c, err)
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionPengeluaranCreated, audit.Detail{
		"pengeluaranId": res.PengeluaranID,
		"prodi":         prodi,
		"amount":        req.Amount,
	}, c.ClientIP())
	okMsg(c, "Pengeluaran dicatat", gin.H{"newBalance": res.NewBalance})
}

type monthlyReport struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Net     int64  `json:"net"`
	Growth  string `json:"growth"` // percent vs previous month's income
}

// handleLaporan assembles the monthly income/expense report for a prodi over
// the last N months (default 6). Growth is the income delta against the
// previous month as a percentage, computed in decimal so 1/3-style ratios
// round predictably to two places.
func (a *App) handleLaporan(c *gin.Context) {
	prodi, found := operatorProdi(c)
	if !found {
		fail(c, http.StatusBadRequest, "prodi wajib ditentukan")
		return
	}
	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))
	if months < 1 {
		months = 1
	}
	if months > 24 {
		months = 24
	}

	now := time.Now()
	report := make([]monthlyReport, 0, months)
	var prevIncome int64 = -1
	for i := months - 1; i >= 0; i-- {
		ref := now.AddDate(0, -i, 0)
		month, year := int(ref.Month()), ref.Year()

		var hist models.ProdiSaldoHistory
		income := int64(0)
		if err := a.db.Where("prodi = ? AND month = ? AND year = ?", prodi, month, year).
			First(&hist).Error; err == nil {
			income = hist.Income
		}

		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0)
		var expense int64
		a.db.Model(&models.ProdiPengeluaran{}).
			Where("prodi = ? AND created_at >= ? AND created_at < ?", prodi, start, end).
			Select("COALESCE(SUM(amount), 0)").Scan(&expense)

		growth := "0.00"
		if prevIncome > 0 {
			delta := decimal.NewFromInt(income).Sub(decimal.NewFromInt(prevIncome))
			growth = delta.Div(decimal.NewFromInt(prevIncome)).
				Mul(decimal.NewFromInt(100)).StringFixed(2)
		}
		report = append(report, monthlyReport{
			Month:   month,
			Year:    year,
			Income:  income,
			Expense: expense,
			Net:     income - expense,
			Growth:  growth,
		})
		prevIncome = income
	}
	ok(c, gin.H{"prodi": prodi, "months": report})
}
