// server/internal/models/supplier.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Supplier struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SupplierID string             `bson:"supplierID" json:"supplierID"` // ví dụ: "SUP-1A2B3C4D"
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Categories []string           `bson:"categories,omitempty" json:"categories"`
	Status     string             `bson:"status" json:"status"` // ACTIVE, INACTIVE
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Ref trả về tham chiếu nhúng vào báo giá.
func (s Supplier) Ref() SupplierRef {
	return SupplierRef{SupplierID: s.SupplierID, Name: s.Name, Email: s.Email}
}
