// server/internal/api/handlers/quotation_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"pizzeria-backoffice-api-server/internal/api/middleware"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/negotiation"
	"pizzeria-backoffice-api-server/internal/quotation"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

type QuotationHandler struct {
	Service    *quotation.Service
	Suppliers  store.SupplierStore
	Negotiator *negotiation.Analyzer
}

type LineItemRequest struct {
	ProductID          string  `json:"productID"`
	ProductName        string  `json:"productName" binding:"required"`
	Quantity           float64 `json:"quantity" binding:"required,gt=0"`
	Unit               string  `json:"unit"`
	EstimatedUnitPrice float64 `json:"estimatedUnitPrice" binding:"gte=0"`
	Notes              string  `json:"notes"`
}

type CreateQuotationRequest struct {
	SupplierID    string            `json:"supplierID" binding:"required"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryTerms string            `json:"deliveryTerms"`
	PaymentTerms  string            `json:"paymentTerms"`
}

type SupplierResponseRequest struct {
	Email string `json:"email" binding:"required"`
}

type StatusRequest struct {
	Status   models.QuotationStatus `json:"status" binding:"required"`
	Action   string                 `json:"action"`
	Metadata map[string]interface{} `json:"metadata"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// CreateQuotation tạo báo giá nháp cho một nhà cung cấp
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.Suppliers.Get(c.Request.Context(), req.SupplierID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.LineItem{
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			Quantity:           it.Quantity,
			Unit:               it.Unit,
			EstimatedUnitPrice: it.EstimatedUnitPrice,
			Notes:              it.Notes,
		})
	}

	q, err := h.Service.Create(c.Request.Context(), quotation.CreateInput{
		Supplier:      supplier.Ref(),
		Items:         items,
		DeliveryTerms: req.DeliveryTerms,
		PaymentTerms:  req.PaymentTerms,
	}, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// GetQuotations lọc theo ?status=a,b&supplierID=&limit=
func (h *QuotationHandler) GetQuotations(c *gin.Context) {
	filter := store.QuotationFilter{SupplierID: c.Query("supplierID")}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.QuotationStatus(strings.TrimSpace(s))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + string(status)})
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	quotations, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if quotations == nil {
		quotations = []models.Quotation{}
	}
	c.JSON(http.StatusOK, quotations)
}

func (h *QuotationHandler) GetQuotationByID(c *gin.Context) {
	q, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QuotationHandler) GetAuditTrail(c *gin.Context) {
	entries, err := h.Service.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *QuotationHandler) SendRequest(c *gin.Context) {
	h.respond(c)(h.Service.SendRequest(c.Request.Context(), c.Param("id"), middleware.Actor(c)))
}

func (h *QuotationHandler) MarkAwaiting(c *gin.Context) {
	h.respond(c)(h.Service.MarkAwaiting(c.Request.Context(), c.Param("id"), middleware.Actor(c)))
}

// ProcessResponse nhận nội dung email phản hồi của nhà cung cấp
func (h *QuotationHandler) ProcessResponse(c *gin.Context) {
	var req SupplierResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.Service.ProcessSupplierResponse(c.Request.Context(), c.Param("id"), req.Email, middleware.Actor(c)))
}

func (h *QuotationHandler) ConfirmOrder(c *gin.Context) {
	h.respond(c)(h.Service.ConfirmOrder(c.Request.Context(), c.Param("id"), middleware.Actor(c)))
}

func (h *QuotationHandler) MarkShipped(c *gin.Context) {
	var metadata map[string]interface{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&metadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.respond(c)(h.Service.MarkShipped(c.Request.Context(), c.Param("id"), middleware.Actor(c), metadata))
}

func (h *QuotationHandler) MarkReceived(c *gin.Context) {
	h.respond(c)(h.Service.MarkReceived(c.Request.Context(), c.Param("id"), middleware.Actor(c)))
}

func (h *QuotationHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.respond(c)(h.Service.Cancel(c.Request.Context(), c.Param("id"), middleware.Actor(c), req.Reason))
}

func (h *QuotationHandler) FollowUp(c *gin.Context) {
	h.respond(c)(h.Service.DraftFollowUp(c.Request.Context(), c.Param("id"), middleware.Actor(c)))
}

// UpdateStatus là chuyển trạng thái tổng quát, vẫn bị bảng chuyển trạng thái ràng buộc
func (h *QuotationHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + string(req.Status)})
		return
	}
	h.respond(c)(h.Service.Transition(c.Request.Context(), c.Param("id"), req.Status, middleware.Actor(c), req.Action, req.Metadata))
}

// ExpireStale chạy thủ công việc hết hạn báo giá cũ
func (h *QuotationHandler) ExpireStale(c *gin.Context) {
	n, err := h.Service.ExpireStale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

// GetNegotiation phân tích giá bất thường của báo giá
func (h *QuotationHandler) GetNegotiation(c *gin.Context) {
	q, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	analysis, err := h.Negotiator.Analyze(c.Request.Context(), q, c.Query("supplierID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// DraftNegotiation soạn email đàm phán và lưu vào báo giá
func (h *QuotationHandler) DraftNegotiation(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := h.Service.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	analysis, err := h.Negotiator.Analyze(ctx, q, "")
	if err != nil {
		respondError(c, err)
		return
	}
	email, err := h.Negotiator.DraftEmail(ctx, q, analysis)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Service.AttachNegotiationEmail(ctx, q, email, middleware.Actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis, "email": email})
}

func (h *QuotationHandler) respond(c *gin.Context) func(*models.Quotation, error) {
	return func(q *models.Quotation, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}
