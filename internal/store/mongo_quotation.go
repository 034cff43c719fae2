// server/internal/store/mongo_quotation.go
package store

import (
	"context"
	"errors"
	"fmt"

	"pizzeria-backoffice-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const quotationsCollection = "quotations"

type MongoQuotationStore struct {
	coll *mongo.Collection
}

func NewMongoQuotationStore(db *mongo.Database) *MongoQuotationStore {
	return &MongoQuotationStore{coll: db.Collection(quotationsCollection)}
}

func (s *MongoQuotationStore) Get(ctx context.Context, quotationID string) (*models.Quotation, error) {
	var q models.Quotation
	err := s.coll.FindOne(ctx, bson.M{"quotationID": quotationID}).Decode(&q)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find quotation %s: %w", quotationID, err)
	}
	return &q, nil
}

// Save ghi đè toàn bộ document (upsert theo quotationID).
func (s *MongoQuotationStore) Save(ctx context.Context, q *models.Quotation) error {
	opts := options.Replace().SetUpsert(true)
	res, err := s.coll.ReplaceOne(ctx, bson.M{"quotationID": q.QuotationID}, q, opts)
	if err != nil {
		return fmt.Errorf("save quotation %s: %w", q.QuotationID, err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		q.ID = oid
	}
	return nil
}

func (s *MongoQuotationStore) List(ctx context.Context, f QuotationFilter) ([]models.Quotation, error) {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.SupplierID != "" {
		filter["supplier.supplierID"] = f.SupplierID
	}
	if !f.UpdatedBefore.IsZero() {
		filter["updatedAt"] = bson.M{"$lt": f.UpdatedBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query quotations: %w", err)
	}
	defer cursor.Close(ctx)

	var quotations []models.Quotation
	if err = cursor.All(ctx, &quotations); err != nil {
		return nil, fmt.Errorf("decode quotations: %w", err)
	}
	if quotations == nil {
		quotations = []models.Quotation{}
	}
	return quotations, nil
}

// RecentBySupplier lấy tối đa limit báo giá/đơn hàng có giá gần nhất của nhà cung cấp.
func (s *MongoQuotationStore) RecentBySupplier(ctx context.Context, supplierID string, limit int) ([]models.PricePoint, error) {
	quotations, err := s.List(ctx, QuotationFilter{
		Statuses:   pricedStatuses,
		SupplierID: supplierID,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return PricePointsFromQuotations(quotations), nil
}
