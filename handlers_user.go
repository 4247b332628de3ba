package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kampuspay/audit"
	"kampuspay/models"
)

func (a *App) handleMe(c *gin.Context) {
	user, found := a.currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ok(c, gin.H{
		"id":                 user.ID,
		"identifier":         user.Identifier,
		"name":               user.Name,
		"role":               user.Role,
		"prodi":              user.Prodi,
		"angkatan":           user.Angkatan,
		"isActive":           user.IsActive,
		"mustChangePassword": user.MustChangePassword,
		"hasPin":             len(user.PinHash) > 0,
	})
}

func (a *App) handleBalance(c *gin.Context) {
	userID := c.GetUint("userID")
	var balance models.Balance
	amount := int64(0)
	if err := a.db.Where("user_id = ?", userID).First(&balance).Error; err == nil {
		amount = balance.Amount
	}
	ok(c, gin.H{"balance": amount})
}

func (a *App) handleTransactions(c *gin.Context) {
	userID := c.GetUint("userID")
	page, limit := pagination(c)

	q := a.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	var total int64
	q.Count(&total)

	var rows []models.Transaction
	if err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	paginated(c, rows, total, page, limit)
}

// handleLookup resolves a NIM to a display name so the sender can confirm the
// recipient before transferring. Only active student accounts resolve.
func (a *App) handleLookup(c *gin.Context) {
	nim := c.Query("nim")
	if !nimRE.MatchString(nim) {
		fail(c, http.StatusBadRequest, "NIM harus 8 digit angka")
		return
	}
	var user models.User
	err := a.db.Where("identifier = ? AND role = ? AND is_active = ? AND deleted_at IS NULL",
		nim, models.RoleUser, true).First(&user).Error
	if err != nil {
		fail(c, http.StatusNotFound, "Penerima tidak ditemukan")
		return
	}
	ok(c, gin.H{"nim": user.Identifier, "name": user.Name, "prodi": user.Prodi})
}

func (a *App) handleTopupHistory(c *gin.Context) {
	userID := c.GetUint("userID")
	page, limit := pagination(c)

	q := a.db.Model(&models.TopupRequest{}).Where("user_id = ?", userID)
	var total int64
	q.Count(&total)

	var rows []models.TopupRequest
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	paginated(c, rows, total, page, limit)
}

// handleTopupCreate accepts either JSON {"amount": n} or a multipart form
// with an amount field plus an optional evidence image. The image is saved
// under the evidence dir and OCR-scanned best effort; a detected amount that
// disagrees with the claim never blocks the request.
func (a *App) handleTopupCreate(c *gin.Context) {
	userID := c.GetUint("userID")

	var amount int64
	evidencePath := ""
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		v, err := strconv.ParseInt(c.PostForm("amount"), 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Nominal top-up tidak valid")
			return
		}
		amount = v
		if file, err := c.FormFile("evidence"); err == nil {
			ext := strings.ToLower(filepath.Ext(file.Filename))
			switch ext {
			case ".png", ".jpg", ".jpeg":
			default:
				fail(c, http.StatusBadRequest, "Bukti transfer harus gambar PNG/JPG")
				return
			}
			name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
			dst := filepath.Join(a.evidenceBase, name)
			if err := c.SaveUploadedFile(file, dst); err != nil {
				fail(c, http.StatusInternalServerError, "Gagal menyimpan bukti transfer")
				return
			}
			evidencePath = dst
		}
	} else {
		var req struct {
			Amount int64 `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Nominal top-up tidak valid")
			return
		}
		amount = req.Amount
	}

	var detected int64
	var confidence float64
	if evidencePath != "" {
		if amt, conf, _, err := a.extract(evidencePath); err == nil {
			detected, confidence = amt, conf
		}
	}

	req, err := a.ledger.CreateTopup(userID, amount, evidencePath, detected, confidence)
	if err != nil {
		failErr(c, err)
		return
	}
	a.audit.RecordIP(userID, audit.ActionTopupRequested, audit.Detail{
		"requestId": req.ID,
		"amount":    amount,
	}, c.ClientIP())
	okMsg(c, "Permintaan top-up dibuat, menunggu persetujuan admin", req)
}

// handleUserTagihan lists active, not-yet-expired bills targeted at the
// caller's prodi and angkatan, each annotated with whether the caller
// already paid it.
func (a *App) handleUserTagihan(c *gin.Context) {
	userID := c.GetUint("userID")
	prodi := c.GetString("prodi")
	angkatan := c.GetString("angkatan")
	page, limit := pagination(c)

	q := a.db.Model(&models.Tagihan{}).
		Where("is_active = ? AND deleted_at IS NULL", true).
		Where("deadline >= ?", time.Now()).
		Where("prodi_target IS NULL OR prodi_target = ?", prodi).
		Where("angkatan_target IS NULL OR angkatan_target = ?", angkatan)
	var total int64
	q.Count(&total)

	var bills []models.Tagihan
	if err := q.Order("deadline ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&bills).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}

	ids := make([]uint, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	paid := map[uint]bool{}
	if len(ids) > 0 {
		var rows []models.Pembayaran
		a.db.Where("user_id = ? AND status = ? AND tagihan_id IN ?", userID, models.PaymentSuccess, ids).Find(&rows)
		for _, p := range rows {
			paid[p.TagihanID] = true
		}
	}

	out := make([]gin.H, 0, len(bills))
	for _, b := range bills {
		out = append(out, gin.H{
			"id":          b.ID,
			"title":       b.Title,
			"description": b.Description,
			"jenis":       b.Jenis,
			"nominal":     b.Nominal,
			"deadline":    b.Deadline,
			"isPaid":      paid[b.ID],
		})
	}
	paginated(c, out, total, page, limit)
}

type payTagihanRequest struct {
	TagihanID uint   `json:"tagihanId" binding:"required"`
	Pin       string `json:"pin" binding:"required"`
}

func (a *App) handlePayTagihan(c *gin.Context) {
	var req payTagihanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "tagihanId dan pin wajib diisi")
		return
	}
	userID := c.GetUint("userID")
	res, err := a.ledger.PayBill(userID, req.TagihanID, req.Pin)
	if err != nil {
		failErr(c, err)
		return
	}
	a.audit.RecordIP(userID, audit.ActionPaymentSuccess, audit.Detail{
		"tagihanId":     req.TagihanID,
		"pembayaranId":  res.PembayaranID,
		"transactionId": res.TransactionID,
	}, c.ClientIP())
	okMsg(c, "Pembayaran berhasil", gin.H{"newBalance": res.NewBalance})
}

type transferRequest struct {
	ToNIM  string `json:"toNim" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Pin    string `json:"pin" binding:"required"`
	Note   string `json:"note"`
}

func (a *App) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "toNim, amount dan pin wajib diisi")
		return
	}
	userID := c.GetUint("userID")
	res, err := a.ledger.Transfer(userID, req.ToNIM, req.Amount, req.Pin, req.Note)
	if err != nil {
		failErr(c, err)
		return
	}
	a.audit.RecordIP(userID, audit.ActionTransferSent, audit.Detail{
		"toNim":  req.ToNIM,
		"amount": req.Amount,
	}, c.ClientIP())
	okMsg(c, "Transfer berhasil", gin.H{
		"newBalance":    res.NewSenderBalance,
		"recipientName": res.RecipientName,
	})
}
