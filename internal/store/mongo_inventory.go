package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pizzeria-backoffice-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	inventoryCollection = "inventory_state"
	inventoryDocID      = "inventory_v2"
	legacyInventoryID   = "inventory"
)

type inventoryDocument struct {
	ID                       string `bson:"_id"`
	models.InventorySnapshot `bson:",inline"`
}

// legacyInventory là dạng document cũ: chỉ có danh sách sản phẩm.
type legacyInventory struct {
	Items []models.Product `bson:"items"`
}

type MongoInventoryStore struct {
	coll *mongo.Collection
}

func NewMongoInventoryStore(db *mongo.Database) *MongoInventoryStore {
	return &MongoInventoryStore{coll: db.Collection(inventoryCollection)}
}

// LoadInventory đọc inventory_v2, nếu chưa có thì đọc document "inventory" cũ.
func (s *MongoInventoryStore) LoadInventory(ctx context.Context) (*models.InventorySnapshot, error) {
	var doc inventoryDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": inventoryDocID}).Decode(&doc)
	if err == nil {
		snap := doc.InventorySnapshot
		return &snap, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	var legacy legacyInventory
	err = s.coll.FindOne(ctx, bson.M{"_id": legacyInventoryID}).Decode(&legacy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load legacy inventory: %w", err)
	}
	return &models.InventorySnapshot{
		Items:      legacy.Items,
		Categories: CategoriesOf(legacy.Items),
	}, nil
}

func (s *MongoInventoryStore) SaveInventory(ctx context.Context, snap *models.InventorySnapshot) error {
	doc := inventoryDocument{ID: inventoryDocID, InventorySnapshot: *snap}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": inventoryDocID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

// CategoriesOf trả về danh mục khác nhau của các sản phẩm, đã sắp xếp.
func CategoriesOf(items []models.Product) []string {
	seen := map[string]bool{}
	categories := []string{}
	for _, p := range items {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}
