package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "price_history:"

// PriceCache đọc lịch sử giá qua Redis, hết hạn sau ttl.
// Lỗi Redis không làm hỏng lượt đọc: luôn rơi xuống store.
type PriceCache struct {
	redis  *redis.Client
	source store.PriceHistoryStore
	ttl    time.Duration
	limit  int
	logger *zap.Logger
}

func NewPriceCache(rdb *redis.Client, source store.PriceHistoryStore, ttl time.Duration, limit int, logger *zap.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceCache{redis: rdb, source: source, ttl: ttl, limit: limit, logger: logger}
}

func cacheKey(supplierID string) string { return cacheKeyPrefix + supplierID }

// Recent trả về tối đa limit điểm giá gần nhất của nhà cung cấp.
func (c *PriceCache) Recent(ctx context.Context, supplierID string) ([]models.PricePoint, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, cacheKey(supplierID)).Bytes()
		switch {
		case err == nil:
			var points []models.PricePoint
			if jerr := json.Unmarshal(data, &points); jerr == nil {
				metrics.PriceCacheLookups.WithLabelValues("hit").Inc()
				return points, nil
			}
			metrics.PriceCacheLookups.WithLabelValues("error").Inc()
		case errors.Is(err, redis.Nil):
			metrics.PriceCacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.PriceCacheLookups.WithLabelValues("error").Inc()
			c.logger.Warn("negotiation.cache_get_failed", zap.String("supplierID", supplierID), zap.Error(err))
		}
	}

	points, err := c.source.RecentBySupplier(ctx, supplierID, c.limit)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.PricePoint{}
	}

	if c.redis != nil {
		data, err := json.Marshal(points)
		if err == nil {
			err = c.redis.Set(ctx, cacheKey(supplierID), data, c.ttl).Err()
		}
		if err != nil {
			c.logger.Warn("negotiation.cache_set_failed", zap.String("supplierID", supplierID), zap.Error(err))
		}
	}
	return points, nil
}

// Invalidate xóa cache của nhà cung cấp.
func (c *PriceCache) Invalidate(ctx context.Context, supplierID string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, cacheKey(supplierID)).Err()
}
