package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"kampuspay/audit"
	"kampuspay/models"
)

func (a *App) handleAdminTopupList(c *gin.Context) {
	page, limit := pagination(c)
	q := a.db.Model(&models.TopupRequest{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	q.Count(&total)

	var rows []models.TopupRequest
	if err := q.Order("created_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		var user models.User
		a.db.Select("identifier, name").First(&user, r.UserID)
		out = append(out, gin.H{
			"id":                 r.ID,
			"userId":             r.UserID,
			"identifier":         user.Identifier,
			"name":               user.Name,
			"amount":             r.Amount,
			"status":             r.Status,
			"evidencePath":       r.EvidencePath,
			"detectedAmount":     r.DetectedAmount,
			"detectedConfidence": r.DetectedConfidence,
			"rejectionReason":    r.RejectionReason,
			"createdAt":          r.CreatedAt,
			"validatedAt":        r.ValidatedAt,
		})
	}
	paginated(c, out, total, page, limit)
}

type topupProcessRequest struct {
	RequestID uint   `json:"requestId" binding:"required"`
	Action    string `json:"action" binding:"required"` // APPROVE or REJECT
	Reason    string `json:"reason"`
}

func (a *App) handleAdminTopupProcess(c *gin.Context) {
	var req topupProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "requestId dan action wajib diisi")
		return
	}
	adminID := c.GetUint("userID")
	switch strings.ToUpper(req.Action) {
	case "APPROVE":
		res, err := a.ledger.ApproveTopup(req.RequestID, adminID)
		if err != nil {
			failErr(c, err)
			return
		}
		a.audit.RecordIP(adminID, audit.ActionTopupApproved, audit.Detail{
			"requestId":     req.RequestID,
			"transactionId": res.TransactionID,
		}, c.ClientIP())
		okMsg(c, "Top-up disetujui", gin.H{"newBalance": res.NewBalance})
	case "REJECT":
		if err := a.ledger.RejectTopup(req.RequestID, adminID, req.Reason); err != nil {
			failErr(c, err)
			return
		}
		a.audit.RecordIP(adminID, audit.ActionTopupRejected, audit.Detail{
			"requestId": req.RequestID,
			"reason":    req.Reason,
		}, c.ClientIP())
		okMsg(c, "Top-up ditolak", nil)
	default:
		fail(c, http.StatusBadRequest, "action harus APPROVE atau REJECT")
	}
}

func (a *App) handleAdminUserList(c *gin.Context) {
	page, limit := pagination(c)
	q := a.db.Model(&models.User{}).Where("role = ? AND deleted_at IS NULL", models.RoleUser)
	if prodi := c.Query("prodi"); prodi != "" {
		q = q.Where("prodi = ?", prodi)
	}
	if angkatan := c.Query("angkatan"); angkatan != "" {
		q = q.Where("angkatan = ?", angkatan)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR identifier LIKE ?", like, like)
	}
	var total int64
	q.Count(&total)

	var users []models.User
	if err := q.Preload("Balance").Order("identifier ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		var balance int64
		if u.Balance != nil {
			balance = u.Balance.Amount
		}
		out = append(out, gin.H{
			"id":         u.ID,
			"identifier": u.Identifier,
			"name":       u.Name,
			"prodi":      u.Prodi,
			"angkatan":   u.Angkatan,
			"isActive":   u.IsActive,
			"balance":    balance,
			"createdAt":  u.CreatedAt,
		})
	}
	paginated(c, out, total, page, limit)
}

type createUserRequest struct {
	NIM      string `json:"nim" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Prodi    string `json:"prodi" binding:"required"`
	Angkatan string `json:"angkatan" binding:"required"`
	Password string `json:"password"`
}

// handleAdminUserCreate registers a student account. When no password is
// given the NIM doubles as the initial password and the account is flagged
// to change it on first login.
func (a *App) handleAdminUserCreate(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "nim, name, prodi dan angkatan wajib diisi")
		return
	}
	if !nimRE.MatchString(req.NIM) {
		fail(c, http.StatusBadRequest, "NIM harus 8 digit angka")
		return
	}
	password := req.Password
	mustChange := false
	if password == "" {
		password = req.NIM
		mustChange = true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	user := models.User{
		Identifier:         req.NIM,
		Name:               strings.TrimSpace(req.Name),
		Role:               models.RoleUser,
		Prodi:              &req.Prodi,
		Angkatan:           &req.Angkatan,
		PasswordHash:       hash,
		IsActive:           true,
		MustChangePassword: mustChange,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			fail(c, http.StatusConflict, "NIM sudah terdaftar")
			return
		}
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.db.Create(&models.Balance{UserID: user.ID, Amount: 0})
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionUserCreated, audit.Detail{
		"userId": user.ID,
		"nim":    user.Identifier,
	}, c.ClientIP())
	okMsg(c, "Mahasiswa terdaftar", gin.H{"id": user.ID, "identifier": user.Identifier})
}

func (a *App) loadManagedUser(c *gin.Context, role string) (*models.User, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "ID tidak valid")
		return nil, false
	}
	var user models.User
	if err := a.db.Where("id = ? AND role = ? AND deleted_at IS NULL", id, role).First(&user).Error; err != nil {
		fail(c, http.StatusNotFound, "Akun tidak ditemukan")
		return nil, false
	}
	return &user, true
}

type updateUserRequest struct {
	Name          *string `json:"name"`
	Prodi         *string `json:"prodi"`
	Angkatan      *string `json:"angkatan"`
	ResetPassword bool    `json:"resetPassword"`
}

func (a *App) handleAdminUserUpdate(c *gin.Context) {
	user, found := a.loadManagedUser(c, models.RoleUser)
	if !found {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "payload tidak valid")
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Prodi != nil {
		updates["prodi"] = *req.Prodi
	}
	if req.Angkatan != nil {
		updates["angkatan"] = *req.Angkatan
	}
	if req.ResetPassword {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Identifier), bcrypt.DefaultCost)
		if err != nil {
			fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
			return
		}
		updates["password_hash"] = hash
		updates["must_change_password"] = true
	}
	if len(updates) == 0 {
		okMsg(c, "Tidak ada perubahan", nil)
		return
	}
	if err := a.db.Model(user).Updates(updates).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	if req.ResetPassword {
		a.audit.RecordIP(c.GetUint("userID"), audit.ActionUserPasswordReset, audit.Detail{"userId": user.ID}, c.ClientIP())
	}
	okMsg(c, "Akun diperbarui", nil)
}

// handleAdminUserDelete soft deletes: the row is kept for ledger integrity,
// but the account can no longer log in, receive transfers, or appear in
// listings.
func (a *App) handleAdminUserDelete(c *gin.Context) {
	user, found := a.loadManagedUser(c, models.RoleUser)
	if !found {
		return
	}
	now := time.Now()
	if err := a.db.Model(user).Updates(map[string]any{"deleted_at": now, "is_active": false}).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("revoked", true)
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionUserStatusChanged, audit.Detail{
		"userId":  user.ID,
		"deleted": true,
	}, c.ClientIP())
	okMsg(c, "Akun dihapus", nil)
}

func (a *App) handleAdminUserToggle(c *gin.Context) {
	user, found := a.loadManagedUser(c, models.RoleUser)
	if !found {
		return
	}
	next := !user.IsActive
	if err := a.db.Model(user).Update("is_active", next).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	if !next {
		a.db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("revoked", true)
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionUserStatusChanged, audit.Detail{
		"userId":   user.ID,
		"isActive": next,
	}, c.ClientIP())
	okMsg(c, "Status akun diubah", gin.H{"isActive": next})
}

func (a *App) handleAdminOperatorList(c *gin.Context) {
	page, limit := pagination(c)
	q := a.db.Model(&models.User{}).Where("role = ? AND deleted_at IS NULL", models.RoleOperator)
	var total int64
	q.Count(&total)

	var ops []models.User
	if err := q.Order("identifier ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&ops).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	out := make([]gin.H, 0, len(ops))
	for _, o := range ops {
		out = append(out, gin.H{
			"id":         o.ID,
			"identifier": o.Identifier,
			"name":       o.Name,
			"prodi":      o.Prodi,
			"isActive":   o.IsActive,
			"createdAt":  o.CreatedAt,
		})
	}
	paginated(c, out, total, page, limit)
}

type createOperatorRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Prodi      string `json:"prodi" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

func (a *App) handleAdminOperatorCreate(c *gin.Context) {
	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "identifier, name, prodi dan password (min 8) wajib diisi")
		return
	}
	if !operatorRE.MatchString(req.Identifier) {
		fail(c, http.StatusBadRequest, "Format identifier operator: OP-XX-NNNN")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	op := models.User{
		Identifier:   req.Identifier,
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleOperator,
		Prodi:        &req.Prodi,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := a.db.Create(&op).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			fail(c, http.StatusConflict, "Identifier sudah terdaftar")
			return
		}
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionOperatorCreated, audit.Detail{
		"operatorId": op.ID,
		"identifier": op.Identifier,
	}, c.ClientIP())
	okMsg(c, "Operator terdaftar", gin.H{"id": op.ID, "identifier": op.Identifier})
}

func (a *App) handleAdminOperatorDelete(c *gin.Context) {
	op, found := a.loadManagedUser(c, models.RoleOperator)
	if !found {
		return
	}
	now := time.Now()
	if err := a.db.Model(op).Updates(map[string]any{"deleted_at": now, "is_active": false}).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.db.Model(&models.RefreshToken{}).Where("user_id = ?", op.ID).Update("revoked", true)
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionOperatorDeleted, audit.Detail{"operatorId": op.ID}, c.ClientIP())
	okMsg(c, "Operator dihapus", nil)
}

func (a *App) handleAdminOperatorToggle(c *gin.Context) {
	op, found := a.loadManagedUser(c, models.RoleOperator)
	if !found {
		return
	}
	next := !op.IsActive
	if err := a.db.Model(op).Update("is_active", next).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	if !next {
		a.db.Model(&models.RefreshToken{}).Where("user_id = ?", op.ID).Update("revoked", true)
	}
	a.audit.RecordIP(c.GetUint("userID"), audit.ActionOperatorStatusChanged, audit.Detail{
		"operatorId": op.ID,
		"isActive":   next,
	}, c.ClientIP())
	okMsg(c, "Status operator diubah", gin.H{"isActive": next})
}

func (a *App) handleAdminAudit(c *gin.Context) {
	page, limit := pagination(c)
	q := a.db.Model(&models.AuditLog{})
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}
	if actor := c.Query("actorId"); actor != "" {
		q = q.Where("actor_id = ?", actor)
	}
	var total int64
	q.Count(&total)

	var rows []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	paginated(c, rows, total, page, limit)
}

func (a *App) handleAdminOverview(c *gin.Context) {
	var students, operators, pendingTopups, activeTagihan int64
	a.db.Model(&models.User{}).Where("role = ? AND deleted_at IS NULL", models.RoleUser).Count(&students)
	a.db.Model(&models.User{}).Where("role = ? AND deleted_at IS NULL", models.RoleOperator).Count(&operators)
	a.db.Model(&models.TopupRequest{}).Where("status = ?", models.TopupPending).Count(&pendingTopups)
	a.db.Model(&models.Tagihan{}).Where("is_active = ? AND deleted_at IS NULL", true).Count(&activeTagihan)

	var totalWallet, totalProdi int64
	a.db.Model(&models.Balance{}).Select("COALESCE(SUM(amount), 0)").Scan(&totalWallet)
	a.db.Model(&models.ProdiSaldo{}).Select("COALESCE(SUM(total_balance), 0)").Scan(&totalProdi)

	ok(c, gin.H{
		"students":          students,
		"operators":         operators,
		"pendingTopups":     pendingTopups,
		"activeTagihan":     activeTagihan,
		"totalWalletAmount": totalWallet,
		"totalProdiAmount":  totalProdi,
	})
}

func (a *App) handleAdminProdiSaldoSummary(c *gin.Context) {
	var saldos []models.ProdiSaldo
	if err := a.db.Order("prodi ASC").Find(&saldos).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	out := make([]gin.H, 0, len(saldos))
	for _, s := range saldos {
		var expense int64
		a.db.Model(&models.ProdiPengeluaran{}).Where("prodi = ?", s.Prodi).
			Select("COALESCE(SUM(amount), 0)").Scan(&expense)
		out = append(out, gin.H{
			"prodi":        s.Prodi,
			"totalBalance": s.TotalBalance,
			"totalExpense": expense,
		})
	}
	ok(c, out)
}

// handlePublicProdiSaldo is the unauthenticated transparency endpoint: each
// prodi's current balance, nothing else.
func (a *App) handlePublicProdiSaldo(c *gin.Context) {
	var saldos []models.ProdiSaldo
	if err := a.db.Order("prodi ASC").Find(&saldos).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	out := make([]gin.H, 0, len(saldos))
	for _, s := range saldos {
		out = append(out, gin.H{"prodi": s.Prodi, "totalBalance": s.TotalBalance})
	}
	ok(c, out)
}
