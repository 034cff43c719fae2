// server/internal/store/store.go
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/internal/models"
)

// ErrNotFound được trả về khi document không tồn tại.
var ErrNotFound = errors.New("not found")

// ErrDuplicate được trả về khi khóa nghiệp vụ đã tồn tại.
var ErrDuplicate = errors.New("already exists")

type QuotationFilter struct {
	Statuses      []models.QuotationStatus
	SupplierID    string
	UpdatedBefore time.Time
	Limit         int
}

// QuotationStore lưu toàn bộ document báo giá, khóa theo quotationID.
// Ghi sau thắng: không có kiểm tra phiên bản.
type QuotationStore interface {
	Get(ctx context.Context, quotationID string) (*models.Quotation, error)
	Save(ctx context.Context, q *models.Quotation) error
	List(ctx context.Context, filter QuotationFilter) ([]models.Quotation, error)
}

// AuditStore chỉ cho phép thêm, không sửa/xóa.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByQuotation(ctx context.Context, quotationID string) ([]models.AuditEntry, error)
}

type SupplierStore interface {
	Create(ctx context.Context, s *models.Supplier) error
	Get(ctx context.Context, supplierID string) (*models.Supplier, error)
	List(ctx context.Context) ([]models.Supplier, error)
	Update(ctx context.Context, s *models.Supplier) error
}

// PriceHistoryStore đọc các mức giá gần nhất của nhà cung cấp.
type PriceHistoryStore interface {
	RecentBySupplier(ctx context.Context, supplierID string, limit int) ([]models.PricePoint, error)
}

// InventoryStore là bản sao từ xa của trạng thái kho.
type InventoryStore interface {
	LoadInventory(ctx context.Context) (*models.InventorySnapshot, error)
	SaveInventory(ctx context.Context, snap *models.InventorySnapshot) error
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// pricedStatuses là các trạng thái mà giá của báo giá được coi là lịch sử.
var pricedStatuses = []models.QuotationStatus{
	models.StatusQuoted, models.StatusOrdered, models.StatusShipped, models.StatusReceived,
}

// PricePointsFromQuotations trải phẳng các dòng có giá của báo giá thành PricePoint.
// Một sản phẩm lặp lại trong cùng báo giá chỉ tính một lần (khóa quotationID:product).
func PricePointsFromQuotations(quotations []models.Quotation) []models.PricePoint {
	var points []models.PricePoint
	seen := map[string]bool{}
	for _, q := range quotations {
		source := "quotation"
		if q.Status != models.StatusQuoted {
			source = "order"
		}
		for _, item := range q.Items {
			if item.QuotedUnitPrice == nil {
				continue
			}
			key := compositeKey(q.QuotationID, item)
			if seen[key] {
				continue
			}
			seen[key] = true
			points = append(points, models.PricePoint{
				SupplierID:  q.Supplier.SupplierID,
				QuotationID: q.QuotationID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				UnitPrice:   *item.QuotedUnitPrice,
				Source:      source,
				ObservedAt:  q.UpdatedAt,
			})
		}
	}
	return points
}

func compositeKey(quotationID string, item models.LineItem) string {
	product := item.ProductID
	if product == "" {
		product = strings.ToLower(strings.TrimSpace(item.ProductName))
	}
	return quotationID + ":" + product
}
