// server/internal/api/handlers/supplier_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SupplierHandler struct {
	Suppliers store.SupplierStore
}

type SupplierRequest struct {
	Name       string   `json:"name" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Phone      string   `json:"phone"`
	Categories []string `json:"categories"`
	Status     string   `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// CreateSupplier tạo một nhà cung cấp mới
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" {
		req.Status = "ACTIVE"
	}

	now := time.Now().UTC()
	supplier := models.Supplier{
		SupplierID: fmt.Sprintf("SUP-%s", strings.ToUpper(uuid.New().String()[:8])),
		Name:       req.Name,
		Email:      strings.ToLower(req.Email),
		Phone:      req.Phone,
		Categories: req.Categories,
		Status:     req.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Suppliers.Create(c.Request.Context(), &supplier); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, supplier)
}

// GetAllSuppliers lấy danh sách tất cả nhà cung cấp
func (h *SupplierHandler) GetAllSuppliers(c *gin.Context) {
	suppliers, err := h.Suppliers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	c.JSON(http.StatusOK, suppliers)
}

// GetSupplierByID lấy thông tin nhà cung cấp theo supplierID
func (h *SupplierHandler) GetSupplierByID(c *gin.Context) {
	supplier, err := h.Suppliers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// UpdateSupplier cập nhật thông tin nhà cung cấp
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	var req SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.Suppliers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	supplier.Name = req.Name
	supplier.Email = strings.ToLower(req.Email)
	supplier.Phone = req.Phone
	supplier.Categories = req.Categories
	if req.Status != "" {
		supplier.Status = req.Status
	}
	supplier.UpdatedAt = time.Now().UTC()

	if err := h.Suppliers.Update(c.Request.Context(), supplier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}
