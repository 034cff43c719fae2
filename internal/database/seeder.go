// server/internal/database/seeder.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/auth"
	"pizzeria-backoffice-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAdmin tạo tài khoản quản lý đầu tiên nếu chưa có.
func SeedAdmin(ctx context.Context, db *mongo.Database, cfg config.AdminConfig, logger *zap.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("database.seed_skipped", zap.String("reason", "admin credentials not configured"))
		return nil
	}
	email := strings.ToLower(cfg.Email)
	userCollection := db.Collection("users")

	count, err := userCollection.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("database.seed_skipped", zap.String("reason", "admin already exists"))
		return nil
	}

	hashedPassword, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := models.User{
		UserID:    models.NewUserID(),
		Email:     email,
		Name:      "Administrator",
		Password:  hashedPassword,
		Role:      models.RoleManager,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	if _, err := userCollection.InsertOne(ctx, admin); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	logger.Info("database.admin_seeded", zap.String("email", email))
	return nil
}
