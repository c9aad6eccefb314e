package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"go.uber.org/zap"
)

// CachedProductRepository decorates the catalog reads with a Redis
// cache. Stock writes invalidate the cached entry so summaries never
// serve a stale quantity for long.
type CachedProductRepository struct {
	inner  repository.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProductRepository(
	inner repository.ProductRepository,
	client *redis.Client,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedProductRepository {
	return &CachedProductRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (r *CachedProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productCacheKey(id)

	cached, err := r.client.Get(ctx, key).Result()
	if err == nil {
		var p domain.Product
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
		// Corrupt entry, fall through to the source of truth.
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		applog.Warn(ctx, r.logger, "Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	}

	product, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			applog.Warn(ctx, r.logger, "Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}

	return product, nil
}

func (r *CachedProductRepository) AdjustStock(ctx context.Context, tx pgx.Tx, productID, delta int64) error {
	if err := r.inner.AdjustStock(ctx, tx, productID, delta); err != nil {
		return err
	}

	// Invalidation before commit can race a reader refilling the old
	// value, but the TTL bounds that window.
	if err := r.client.Del(ctx, productCacheKey(productID)).Err(); err != nil {
		applog.Warn(ctx, r.logger, "Product cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
	}

	return nil
}
