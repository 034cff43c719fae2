// server/internal/api/handlers/invoice_handler.go
package handlers

import (
	"io"
	"net/http"

	"pizzeria-backoffice-api-server/internal/invoice"

	"github.com/gin-gonic/gin"
)

const maxInvoiceSize = 10 << 20

type InvoiceHandler struct {
	Scanner *invoice.Scanner
}

// ScanInvoice nhận ảnh hóa đơn (multipart, field "image") và trả về các dòng đã đọc
func (h *InvoiceHandler) ScanInvoice(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	if fileHeader.Size > maxInvoiceSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is larger than 10MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	result, err := h.Scanner.Scan(c.Request.Context(), data, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
