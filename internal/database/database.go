// server/internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"pizzeria-backoffice-api-server/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Connect mở kết nối MongoDB và ping thử.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes tạo các index cần cho truy vấn và khóa nghiệp vụ.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	indexes := map[string][]mongo.IndexModel{
		"quotations": {
			{Keys: bson.D{{Key: "quotationID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "supplier.supplierID", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		"audit_logs": {
			{Keys: bson.D{{Key: "quotationID", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		"suppliers": {
			{Keys: bson.D{{Key: "supplierID", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		logger.Debug("database.indexes_ready", zap.String("collection", coll), zap.Strings("indexes", names))
	}
	return nil
}
