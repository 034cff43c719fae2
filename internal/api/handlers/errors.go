// server/internal/api/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"pizzeria-backoffice-api-server/internal/inventory"
	"pizzeria-backoffice-api-server/internal/invoice"
	"pizzeria-backoffice-api-server/internal/logger"
	"pizzeria-backoffice-api-server/internal/negotiation"
	"pizzeria-backoffice-api-server/internal/quotation"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError ánh xạ lỗi nghiệp vụ sang mã HTTP.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, inventory.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, quotation.ErrIllegalTransition),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, negotiation.ErrNothingToNegotiate):
		status = http.StatusConflict
	case errors.Is(err, quotation.ErrInvalidQuotation),
		errors.Is(err, inventory.ErrInvalidProduct),
		errors.Is(err, inventory.ErrInvalidBackup):
		status = http.StatusBadRequest
	case errors.Is(err, invoice.ErrUnsupportedImage):
		status = http.StatusUnsupportedMediaType
	}

	if status == http.StatusInternalServerError {
		logger.L().Error("api.internal_error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
