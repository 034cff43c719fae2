// server/internal/api/handlers/inventory_handler.go
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"pizzeria-backoffice-api-server/internal/inventory"
	"pizzeria-backoffice-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

const maxBackupSize = 10 << 20

type InventoryHandler struct {
	Service *inventory.Service
}

type ProductRequest struct {
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category"`
	Unit         string  `json:"unit"`
	CurrentStock float64 `json:"currentStock" binding:"gte=0"`
	MinStock     float64 `json:"minStock" binding:"gte=0"`
	UnitCost     float64 `json:"unitCost" binding:"gte=0"`
	SupplierID   string  `json:"supplierID"`
}

type StockMovementRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Reason   string  `json:"reason"`
}

type CategoryOrderRequest struct {
	Categories []string `json:"categories" binding:"required"`
}

// UpdateCategories lưu thứ tự danh mục (kéo thả trên giao diện).
func (h *InventoryHandler) UpdateCategories(c *gin.Context) {
	var req CategoryOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	categories, err := h.Service.SetCategories(c.Request.Context(), req.Categories)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *InventoryHandler) GetInventory(c *gin.Context) {
	snap, err := h.Service.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// UpsertProduct tạo hoặc cập nhật sản phẩm; id "new" để tạo mới
func (h *InventoryHandler) UpsertProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if id == "new" {
		id = ""
	}
	p, err := h.Service.UpsertProduct(c.Request.Context(), models.Product{
		ProductID:    id,
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		UnitCost:     req.UnitCost,
		SupplierID:   req.SupplierID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) Consume(c *gin.Context) {
	var req StockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Service.Consume(c.Request.Context(), c.Param("id"), req.Quantity, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) Receive(c *gin.Context) {
	var req StockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Service.Receive(c.Request.Context(), c.Param("id"), req.Quantity, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.Service.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ExportJSON tải file sao lưu kho
func (h *InventoryHandler) ExportJSON(c *gin.Context) {
	data, err := h.Service.ExportJSON(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("inventory-%s.json", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/json", data)
}

// ImportJSON thay toàn bộ kho bằng file sao lưu trong body
func (h *InventoryHandler) ImportJSON(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	snap, err := h.Service.ImportJSON(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *InventoryHandler) ExportXLSX(c *gin.Context) {
	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := h.Service.ExportXLSX(c.Request.Context(), c.Writer); err != nil {
		respondError(c, err)
	}
}
