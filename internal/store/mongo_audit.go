package store

import (
	"context"
	"fmt"

	"pizzeria-backoffice-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollection = "audit_logs"

// MongoAuditStore chỉ có thao tác thêm; audit_logs không bao giờ bị sửa.
type MongoAuditStore struct {
	coll *mongo.Collection
}

func NewMongoAuditStore(db *mongo.Database) *MongoAuditStore {
	return &MongoAuditStore{coll: db.Collection(auditCollection)}
}

func (s *MongoAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	res, err := s.coll.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}

func (s *MongoAuditStore) ListByQuotation(ctx context.Context, quotationID string) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"quotationID": quotationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.AuditEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}
