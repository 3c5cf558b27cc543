package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-matcher/pkg/clients"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const snapshotKey = "catalog:snapshot"

// CacheRepo кэширует снимок каталога целиком одним ключом с TTL.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.CatalogEntryConverter
	ttl    time.Duration
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.CatalogEntryConverter,
	ttl time.Duration, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		ttl:    ttl,
		logger: logger,
	}
}

// GetSnapshot возвращает снимок из кэша; ok=false при промахе.
// Повреждённое значение удаляется и считается промахом.
func (c *CacheRepo) GetSnapshot(ctx context.Context) ([]domain.CatalogEntry, bool, error) {
	data, err := c.client.Client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	entries, err := c.decode(data)
	if err != nil {
		c.logger.Warnf("Redis unmarshal failed, dropping snapshot: %v", e.Wrap(whereami.WhereAmI(), err))
		if err := c.client.Client.Del(ctx, snapshotKey).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return entries, true, nil
}

// SetSnapshot сохраняет снимок с TTL.
func (c *CacheRepo) SetSnapshot(ctx context.Context, entries []domain.CatalogEntry) error {
	data, err := c.encode(entries)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Invalidate удаляет снимок; вызывается после изменения каталога.
func (c *CacheRepo) Invalidate(ctx context.Context) error {
	if err := c.client.Client.Del(ctx, snapshotKey).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) encode(entries []domain.CatalogEntry) ([]byte, error) {
	return json.Marshal(c.conv.ToArrRedisModel(entries))
}

func (c *CacheRepo) decode(data []byte) ([]domain.CatalogEntry, error) {
	var models []converter.CatalogEntryRedisModel
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, err
	}

	return c.conv.ToArrEntity(models), nil
}
