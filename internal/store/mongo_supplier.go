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

const suppliersCollection = "suppliers"

type MongoSupplierStore struct {
	coll *mongo.Collection
}

func NewMongoSupplierStore(db *mongo.Database) *MongoSupplierStore {
	return &MongoSupplierStore{coll: db.Collection(suppliersCollection)}
}

func (s *MongoSupplierStore) Create(ctx context.Context, sup *models.Supplier) error {
	// Kiểm tra xem supplierID đã tồn tại chưa
	count, err := s.coll.CountDocuments(ctx, bson.M{"supplierID": sup.SupplierID})
	if err != nil {
		return fmt.Errorf("check supplier: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}

	res, err := s.coll.InsertOne(ctx, sup)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		sup.ID = oid
	}
	return nil
}

func (s *MongoSupplierStore) Get(ctx context.Context, supplierID string) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.coll.FindOne(ctx, bson.M{"supplierID": supplierID}).Decode(&sup); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find supplier %s: %w", supplierID, err)
	}
	return &sup, nil
}

func (s *MongoSupplierStore) List(ctx context.Context) ([]models.Supplier, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer cursor.Close(ctx)

	var suppliers []models.Supplier
	if err = cursor.All(ctx, &suppliers); err != nil {
		return nil, fmt.Errorf("decode suppliers: %w", err)
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	return suppliers, nil
}

func (s *MongoSupplierStore) Update(ctx context.Context, sup *models.Supplier) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"supplierID": sup.SupplierID}, bson.M{"$set": bson.M{
		"name":       sup.Name,
		"email":      sup.Email,
		"phone":      sup.Phone,
		"categories": sup.Categories,
		"status":     sup.Status,
		"updatedAt":  sup.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update supplier %s: %w", sup.SupplierID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
