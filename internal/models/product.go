// server/internal/models/product.go
package models

import "time"

type StockMovement struct {
	Date     time.Time `bson:"date" json:"date"`
	Quantity float64   `bson:"quantity" json:"quantity"` // âm = tiêu thụ, dương = nhập
	Reason   string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Product là một mặt hàng trong kho.
type Product struct {
	ProductID    string          `bson:"productID" json:"productID"`
	Name         string          `bson:"name" json:"name"`
	Category     string          `bson:"category" json:"category"`
	Unit         string          `bson:"unit" json:"unit"`
	CurrentStock float64         `bson:"currentStock" json:"currentStock"`
	MinStock     float64         `bson:"minStock" json:"minStock"`
	UnitCost     float64         `bson:"unitCost" json:"unitCost"`
	SupplierID   string          `bson:"supplierID,omitempty" json:"supplierID,omitempty"`
	Movements    []StockMovement `bson:"movements,omitempty" json:"movements,omitempty"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// InventorySnapshot là toàn bộ trạng thái kho, lưu thành một document.
type InventorySnapshot struct {
	Items      []Product `bson:"items" json:"items"`
	Categories []string  `bson:"categories" json:"categories"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// LowStockProduct là sản phẩm dưới mức tối thiểu kèm tốc độ tiêu thụ.
type LowStockProduct struct {
	Product
	DailyConsumption  float64  `json:"dailyConsumption"`
	DaysUntilStockout *float64 `json:"daysUntilStockout"`
}
