// server/internal/models/quotation.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuotationStatus là trạng thái trong vòng đời của một yêu cầu báo giá.
type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "draft"
	StatusPending   QuotationStatus = "pending"
	StatusAwaiting  QuotationStatus = "awaiting"
	StatusQuoted    QuotationStatus = "quoted"
	StatusOrdered   QuotationStatus = "ordered"
	StatusShipped   QuotationStatus = "shipped"
	StatusReceived  QuotationStatus = "received"
	StatusCancelled QuotationStatus = "cancelled"
	StatusExpired   QuotationStatus = "expired"
)

// AllStatuses theo thứ tự vòng đời.
var AllStatuses = []QuotationStatus{
	StatusDraft, StatusPending, StatusAwaiting, StatusQuoted, StatusOrdered,
	StatusShipped, StatusReceived, StatusCancelled, StatusExpired,
}

func (s QuotationStatus) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s QuotationStatus) Terminal() bool {
	return s == StatusReceived || s == StatusCancelled || s == StatusExpired
}

type SupplierRef struct {
	SupplierID string `bson:"supplierID" json:"supplierID"`
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
}

type LineItem struct {
	ProductID          string   `bson:"productID" json:"productID"`
	ProductName        string   `bson:"productName" json:"productName"`
	Quantity           float64  `bson:"quantity" json:"quantity"`
	Unit               string   `bson:"unit" json:"unit"`
	EstimatedUnitPrice float64  `bson:"estimatedUnitPrice" json:"estimatedUnitPrice"`
	QuotedUnitPrice    *float64 `bson:"quotedUnitPrice" json:"quotedUnitPrice"`
	QuotedAvailability *bool    `bson:"quotedAvailability" json:"quotedAvailability"`
	Notes              string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// EffectiveUnitPrice trả về giá báo nếu có, ngược lại giá ước tính.
func (li LineItem) EffectiveUnitPrice() float64 {
	if li.QuotedUnitPrice != nil {
		return *li.QuotedUnitPrice
	}
	return li.EstimatedUnitPrice
}

type HistoryEntry struct {
	Status         QuotationStatus        `bson:"status" json:"status"`
	PreviousStatus QuotationStatus        `bson:"previousStatus" json:"previousStatus"`
	Timestamp      time.Time              `bson:"timestamp" json:"timestamp"`
	Actor          string                 `bson:"actor" json:"actor"`
	Action         string                 `bson:"action" json:"action"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// EmailDraft là email được soạn cho nhà cung cấp (bởi AI hoặc template).
type EmailDraft struct {
	Kind        string    `bson:"kind" json:"kind"` // request, confirmation, follow_up, negotiation
	Subject     string    `bson:"subject" json:"subject"`
	Body        string    `bson:"body" json:"body"`
	AIGenerated bool      `bson:"aiGenerated" json:"aiGenerated"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

type Quotation struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QuotationID       string             `bson:"quotationID" json:"quotationID"`
	Supplier          SupplierRef        `bson:"supplier" json:"supplier"`
	Items             []LineItem         `bson:"items" json:"items"`
	Status            QuotationStatus    `bson:"status" json:"status"`
	EstimatedTotal    float64            `bson:"estimatedTotal" json:"estimatedTotal"`
	QuotedTotal       *float64           `bson:"quotedTotal" json:"quotedTotal"`
	DeliveryDate      *time.Time         `bson:"deliveryDate,omitempty" json:"deliveryDate,omitempty"`
	DeliveryTerms     string             `bson:"deliveryTerms,omitempty" json:"deliveryTerms,omitempty"`
	PaymentTerms      string             `bson:"paymentTerms,omitempty" json:"paymentTerms,omitempty"`
	SupplierNotes     string             `bson:"supplierNotes,omitempty" json:"supplierNotes,omitempty"`
	NeedsManualReview bool               `bson:"needsManualReview" json:"needsManualReview"`
	LastEmail         *EmailDraft        `bson:"lastEmail,omitempty" json:"lastEmail,omitempty"`
	History           []HistoryEntry     `bson:"history" json:"history"`
	CreatedBy         string             `bson:"createdBy" json:"createdBy"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecalculateTotals tính lại estimatedTotal và quotedTotal.
// quotedTotal giữ nil cho đến khi có ít nhất một dòng được báo giá.
func (q *Quotation) RecalculateTotals() {
	estimated := decimal.Zero
	quoted := decimal.Zero
	anyQuoted := false

	for _, item := range q.Items {
		qty := decimal.NewFromFloat(item.Quantity)
		estimated = estimated.Add(qty.Mul(decimal.NewFromFloat(item.EstimatedUnitPrice)))
		quoted = quoted.Add(qty.Mul(decimal.NewFromFloat(item.EffectiveUnitPrice())))
		if item.QuotedUnitPrice != nil {
			anyQuoted = true
		}
	}

	q.EstimatedTotal, _ = estimated.Round(2).Float64()
	if !anyQuoted {
		q.QuotedTotal = nil
		return
	}
	total, _ := quoted.Round(2).Float64()
	q.QuotedTotal = &total
}

// ItemNames trả về tên các mặt hàng theo thứ tự.
func (q *Quotation) ItemNames() []string {
	names := make([]string, 0, len(q.Items))
	for _, item := range q.Items {
		names = append(names, item.ProductName)
	}
	return names
}
