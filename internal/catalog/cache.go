package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"foodcourt-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CachedReader is a read-through Redis cache in front of another Reader.
// Cache failures degrade to the underlying reader; they are never returned.
type CachedReader struct {
	next    Reader
	client  *redis.Client
	baseTTL time.Duration
	jitter  time.Duration
}

func NewCachedReader(next Reader, client *redis.Client, baseTTL time.Duration) *CachedReader {
	return &CachedReader{
		next:    next,
		client:  client,
		baseTTL: baseTTL,
		jitter:  baseTTL / 4,
	}
}

func (c *CachedReader) GetFoodItem(ctx context.Context, id int64) (*FoodItem, error) {
	key := foodItemKey(id)

	var item FoodItem
	err := c.load(ctx, key, &item)
	if err == nil {
		return &item, nil
	}

	fresh, err := c.next.GetFoodItem(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedReader) GetPrice(ctx context.Context, id int64) (decimal.Decimal, error) {
	item, err := c.GetFoodItem(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return item.Price, nil
}

func (c *CachedReader) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	key := restaurantKey(id)

	var r Restaurant
	err := c.load(ctx, key, &r)
	if err == nil {
		return &r, nil
	}

	fresh, err := c.next.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// Invalidate drops a cached food item.
func (c *CachedReader) Invalidate(ctx context.Context, foodItemID int64) error {
	if err := c.client.Del(ctx, foodItemKey(foodItemID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedReader) load(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		logger.FromCtx(ctx).Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.FromCtx(ctx).Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *CachedReader) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl()).Err(); err != nil {
		logger.FromCtx(ctx).Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedReader) ttl() time.Duration {
	if c.jitter <= 0 {
		return c.baseTTL
	}
	return c.baseTTL + time.Duration(rand.Int63n(int64(c.jitter)))
}

func foodItemKey(id int64) string {
	return fmt.Sprintf("catalog:food_item:%d", id)
}

func restaurantKey(id int64) string {
	return fmt.Sprintf("catalog:restaurant:%d", id)
}
