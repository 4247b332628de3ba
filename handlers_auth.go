package main

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"kampuspay/audit"
	"kampuspay/models"
)

var pinRE = regexp.MustCompile(`^\d{6}$`)

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (a *App) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "identifier dan password wajib diisi")
		return
	}
	user, err := a.authenticate(req.Identifier, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	token, err := a.issueToken(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	refresh, err := a.createRefreshToken(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(user.ID, audit.ActionLogin, audit.Detail{"identifier": user.Identifier}, c.ClientIP())
	ok(c, gin.H{
		"token":        token,
		"refreshToken": refresh,
		"user": gin.H{
			"id":                 user.ID,
			"identifier":         user.Identifier,
			"name":               user.Name,
			"role":               user.Role,
			"prodi":              user.Prodi,
			"angkatan":           user.Angkatan,
			"mustChangePassword": user.MustChangePassword,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// handleRefresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (a *App) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "refreshToken wajib diisi")
		return
	}
	row, err := a.findRefreshToken(req.RefreshToken)
	if err != nil || row.Revoked || time.Now().After(row.ExpiresAt) {
		fail(c, http.StatusUnauthorized, "refresh token tidak valid")
		return
	}
	user, found := a.userByID(row.UserID)
	if !found || !user.IsActive {
		fail(c, http.StatusUnauthorized, "refresh token tidak valid")
		return
	}
	a.db.Model(row).Update("revoked", true)
	token, err := a.issueToken(user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	refresh, err := a.createRefreshToken(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	ok(c, gin.H{"token": token, "refreshToken": refresh})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *App) handleLogout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken != "" {
		if row, err := a.findRefreshToken(req.RefreshToken); err == nil && row.UserID == c.GetUint("userID") {
			a.db.Model(row).Update("revoked", true)
		}
	}
	okMsg(c, "Logout berhasil", nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (a *App) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Password baru minimal 8 karakter")
		return
	}
	user, found := a.currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.OldPassword)); err != nil {
		fail(c, http.StatusUnauthorized, "Password lama salah")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	updates := map[string]any{"password_hash": hash, "must_change_password": false}
	if err := a.db.Model(user).Updates(updates).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(user.ID, audit.ActionPasswordChanged, nil, c.ClientIP())
	okMsg(c, "Password berhasil diubah", nil)
}

type changePinRequest struct {
	Password string `json:"password" binding:"required"`
	NewPin   string `json:"newPin" binding:"required"`
}

// handleChangePin sets or replaces the 6-digit transaction PIN. The account
// password re-authenticates the caller; the old PIN is not required so a
// forgotten PIN stays recoverable.
func (a *App) handleChangePin(c *gin.Context) {
	var req changePinRequest
	if err := c.ShouldBindJSON(&req); err != nil || !pinRE.MatchString(req.NewPin) {
		fail(c, http.StatusBadRequest, "PIN harus 6 digit angka")
		return
	}
	user, found := a.currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Password salah")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPin), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	if err := a.db.Model(user).Update("pin_hash", hash).Error; err != nil {
		fail(c, http.StatusInternalServerError, "terjadi kesalahan server")
		return
	}
	a.audit.RecordIP(user.ID, audit.ActionPinChanged, nil, c.ClientIP())
	okMsg(c, "PIN berhasil diubah", nil)
}

func (a *App) userByID(id uint) (*models.User, bool) {
	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		return nil, false
	}
	return &user, true
}
