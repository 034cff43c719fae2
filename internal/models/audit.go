package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEntry là bản ghi bất biến cho mỗi hành động trên báo giá.
type AuditEntry struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	AuditID        string                 `bson:"auditID" json:"auditID"`
	QuotationID    string                 `bson:"quotationID" json:"quotationID"`
	Action         string                 `bson:"action" json:"action"`
	PreviousStatus QuotationStatus        `bson:"previousStatus" json:"previousStatus"`
	Status         QuotationStatus        `bson:"status" json:"status"`
	Actor          string                 `bson:"actor" json:"actor"`
	Timestamp      time.Time              `bson:"timestamp" json:"timestamp"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
