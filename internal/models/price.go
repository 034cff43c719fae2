package models

import "time"

// PricePoint là một mức giá lịch sử của nhà cung cấp cho một sản phẩm.
type PricePoint struct {
	SupplierID  string    `bson:"supplierID" json:"supplierID"`
	QuotationID string    `bson:"quotationID" json:"quotationID"`
	ProductID   string    `bson:"productID" json:"productID"`
	ProductName string    `bson:"productName" json:"productName"`
	UnitPrice   float64   `bson:"unitPrice" json:"unitPrice"`
	Source      string    `bson:"source" json:"source"` // order, quotation
	ObservedAt  time.Time `bson:"observedAt" json:"observedAt"`
}
