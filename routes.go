package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kampuspay/models"
)

// setupRoutes wires the HTTP surface. Role checks live entirely in the
// group middleware; handlers only do ownership checks that need row data.
func (a *App) setupRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/public/prodi-saldo", a.handlePublicProdiSaldo)

	r.POST("/login", a.handleLogin)
	r.POST("/auth/refresh", a.handleRefresh)

	authed := r.Group("", a.authMiddleware())
	authed.POST("/auth/change-password", a.handleChangePassword)
	authed.POST("/auth/change-pin", a.handleChangePin)
	authed.POST("/auth/logout", a.handleLogout)

	user := authed.Group("/user", requireRole(models.RoleUser))
	user.GET("/me", a.handleMe)
	user.GET("/balance", a.handleBalance)
	user.GET("/transactions", a.handleTransactions)
	user.GET("/lookup", a.handleLookup)
	user.GET("/topup", a.handleTopupHistory)
	user.POST("/topup", a.handleTopupCreate)
	user.GET("/tagihan", a.handleUserTagihan)
	user.POST("/tagihan", a.handlePayTagihan)
	user.POST("/transfer", a.handleTransfer)

	op := authed.Group("", requireRole(models.RoleOperator))
	op.GET("/operator/tagihan", a.handleOperatorTagihanList)
	op.POST("/operator/tagihan", a.handleOperatorTagihanCreate)
	op.PUT("/operator/tagihan/:id", a.handleOperatorTagihanUpdate)
	op.DELETE("/operator/tagihan/:id", a.handleOperatorTagihanDelete)
	op.POST("/operator/tagihan/:id/deactivate", a.handleOperatorTagihanDeactivate)
	op.GET("/prodi/saldo", a.handleProdiSaldo)
	op.GET("/prodi/pengeluaran", a.handlePengeluaranList)
	op.POST("/prodi/pengeluaran", a.handlePengeluaranCreate)
	op.GET("/operator/laporan", a.handleLaporan)

	admin := authed.Group("/admin", requireRole(models.RoleAdmin))
	admin.GET("/topup", a.handleAdminTopupList)
	admin.POST("/topup", a.handleAdminTopupProcess)
	admin.GET("/users", a.handleAdminUserList)
	admin.POST("/users", a.handleAdminUserCreate)
	admin.PUT("/users/:id", a.handleAdminUserUpdate)
	admin.DELETE("/users/:id", a.handleAdminUserDelete)
	admin.POST("/users/:id/toggle-active", a.handleAdminUserToggle)
	admin.GET("/operators", a.handleAdminOperatorList)
	admin.POST("/operators", a.handleAdminOperatorCreate)
	admin.DELETE("/operators/:id", a.handleAdminOperatorDelete)
	admin.POST("/operators/:id/toggle-active", a.handleAdminOperatorToggle)
	admin.GET("/audit", a.handleAdminAudit)
	admin.GET("/overview", a.handleAdminOverview)
	admin.GET("/prodi-saldo-summary", a.handleAdminProdiSaldoSummary)
}
