package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
)

const propertyKeyPrefix = "rental:property:"

// CachedPropertyRepository caches FindByID results in Redis and invalidates
// them on writes. Redis failures fall through to the wrapped repository.
type CachedPropertyRepository struct {
	next   propertyDomain.PropertyRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPropertyRepository wraps next with a Redis read-through cache.
func NewCachedPropertyRepository(next propertyDomain.PropertyRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedPropertyRepository {
	return &CachedPropertyRepository{next: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func propertyKey(id uuid.UUID) string {
	return propertyKeyPrefix + id.String()
}

// FindByID serves the property from cache when present.
func (r *CachedPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	key := propertyKey(id)
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap propertyDomain.Snapshot
		if jsonErr := json.Unmarshal(raw, &snap); jsonErr == nil {
			return propertyDomain.Reconstruct(snap), nil
		}
		r.logger.Warn("dropping undecodable cached property", zap.String("key", key))
		r.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("property cache read failed", zap.String("key", key), zap.Error(err))
	}

	p, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p.Snapshot()); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("property cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

// FindByOwnerID is not cached.
func (r *CachedPropertyRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*propertyDomain.Property, int64, error) {
	return r.next.FindByOwnerID(ctx, ownerID, page, limit)
}

// Search is not cached.
func (r *CachedPropertyRepository) Search(ctx context.Context, filter propertyDomain.SearchFilter) ([]*propertyDomain.Property, int64, error) {
	return r.next.Search(ctx, filter)
}

// ListByStatus is not cached.
func (r *CachedPropertyRepository) ListByStatus(ctx context.Context, status propertyDomain.PropertyStatus, page, limit int) ([]*propertyDomain.Property, int64, error) {
	return r.next.ListByStatus(ctx, status, page, limit)
}

// Save persists a new property.
func (r *CachedPropertyRepository) Save(ctx context.Context, p *propertyDomain.Property) error {
	return r.next.Save(ctx, p)
}

// Update persists the property and drops its cache entry.
func (r *CachedPropertyRepository) Update(ctx context.Context, p *propertyDomain.Property) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx, p.ID())
	return nil
}

// Ping reports whether Redis is reachable.
func (r *CachedPropertyRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *CachedPropertyRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.client.Del(ctx, propertyKey(id)).Err(); err != nil {
		r.logger.Warn("property cache invalidation failed", zap.String("property_id", id.String()), zap.Error(err))
	}
}
