package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"time"

	"kampuspay/ledger"
	"kampuspay/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Identifier formats encode the account role.
var (
	nimRE      = regexp.MustCompile(`^\d{8}$`)
	operatorRE = regexp.MustCompile(`^OP-[A-Z]{2,3}-\d{4}$`)
	adminRE    = regexp.MustCompile(`^ADM-\d{2}-\d{4}$`)
)

// detectRole maps an identifier to its role, or "" for an invalid format.
func detectRole(identifier string) string {
	switch {
	case nimRE.MatchString(identifier):
		return models.RoleUser
	case operatorRE.MatchString(identifier):
		return models.RoleOperator
	case adminRE.MatchString(identifier):
		return models.RoleAdmin
	}
	return ""
}

var roleRank = map[string]int{
	models.RoleUser:     1,
	models.RoleOperator: 2,
	models.RoleAdmin:    3,
}

// authenticate verifies identifier+password against the stored hash. The
// identifier format must agree with the stored role and the account must be
// active. Credential failures all collapse into the same message.
func (a *App) authenticate(identifier, password string) (*models.User, error) {
	detected := detectRole(identifier)
	if detected == "" {
		return nil, &ledger.Error{Kind: ledger.KindInvalidInput, Msg: "Format identifier tidak valid"}
	}
	var user models.User
	if err := a.db.Where("identifier = ? AND deleted_at IS NULL", identifier).First(&user).Error; err != nil {
		return nil, &ledger.Error{Kind: ledger.KindUnauthorized, Msg: "Identifier atau password salah"}
	}
	if !user.IsActive {
		return nil, &ledger.Error{Kind: ledger.KindForbidden, Msg: "Akun Anda telah dinonaktifkan. Hubungi admin."}
	}
	if user.Role != detected {
		return nil, &ledger.Error{Kind: ledger.KindUnauthorized, Msg: "Identifier atau password salah"}
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, &ledger.Error{Kind: ledger.KindUnauthorized, Msg: "Identifier atau password salah"}
	}
	return &user, nil
}

// issueToken signs a 24h HS256 access token carrying the session identity
// the handlers trust: user id, identifier, role, prodi and angkatan.
func (a *App) issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":        float64(user.ID),
		"identifier": user.Identifier,
		"role":       user.Role,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	}
	if user.Prodi != nil {
		claims["prodi"] = *user.Prodi
	}
	if user.Angkatan != nil {
		claims["angkatan"] = *user.Angkatan
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// authMiddleware parses the bearer token and stores the caller's identity in
// the gin context for downstream handlers.
func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 8 || header[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return a.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid claims"})
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(float64)
		identifier, _ := claims["identifier"].(string)
		role, _ := claims["role"].(string)
		if sub <= 0 || role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid claims"})
			c.Abort()
			return
		}
		c.Set("userID", uint(sub))
		c.Set("identifier", identifier)
		c.Set("role", role)
		if prodi, ok := claims["prodi"].(string); ok {
			c.Set("prodi", prodi)
		}
		if angkatan, ok := claims["angkatan"].(string); ok {
			c.Set("angkatan", angkatan)
		}
		c.Next()
	}
}

// requireRole gates a route group on the role hierarchy (ADMIN > OPERATOR >
// USER). Handlers behind it carry no further role branching.
func requireRole(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if roleRank[role] < roleRank[min] {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser loads the full account row for the authenticated caller.
func (a *App) currentUser(c *gin.Context) (*models.User, bool) {
	id := c.GetUint("userID")
	if id == 0 {
		return nil, false
	}
	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// createRefreshToken stores the sha256 hash of a fresh random token and
// returns the raw value for the client.
func (a *App) createRefreshToken(userID uint) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(raw))
	row := models.RefreshToken{
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := a.db.Create(&row).Error; err != nil {
		return "", err
	}
	return raw, nil
}

func (a *App) findRefreshToken(raw string) (*models.RefreshToken, error) {
	sum := sha256.Sum256([]byte(raw))
	var row models.RefreshToken
	if err := a.db.Where("token_hash = ?", hex.EncodeToString(sum[:])).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
