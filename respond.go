package main

import (
	"net/http"
	"strconv"

	"kampuspay/ledger"

	"github.com/gin-gonic/gin"
)

// ok writes the success envelope.
func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// okMsg writes the success envelope with a human message.
func okMsg(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

// fail writes a plain failure.
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// failErr maps a ledger error kind onto an HTTP status and exposes both the
// message and the machine-readable kind.
func failErr(c *gin.Context, err error) {
	kind := ledger.KindOf(err)
	c.JSON(statusFor(kind), gin.H{
		"success": false,
		"error":   err.Error(),
		"kind":    string(kind),
	})
}

func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindUnauthorized, ledger.KindPinMismatch:
		return http.StatusUnauthorized
	case ledger.KindForbidden:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindInvalidInput, ledger.KindInsufficientFunds, ledger.KindInsufficientDepartmentFunds:
		return http.StatusBadRequest
	case ledger.KindAlreadyProcessed, ledger.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// pagination reads page/limit query parameters with the usual clamps.
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// paginated writes the list envelope with total pages.
func paginated(c *gin.Context, data any, total int64, page, limit int) {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}
