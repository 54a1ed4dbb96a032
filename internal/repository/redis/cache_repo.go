package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimlawless/whereami"
	"github.com/redis/go-redis/v9"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/repository/redis/converter"
	"github.com/sellora-tech/catalog-pipeline/pkg/clients"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// CacheRepo кэширует последнюю записанную версию документа поискового
// индекса. Кэш опциональный: промах или недоступность Redis приводят к
// лишней записи в индекс, но не к потере данных.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.SearchDocumentConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.SearchDocumentConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetDocument возвращает закэшированный документ или nil при промахе.
func (r *CacheRepo) GetDocument(ctx context.Context, productID int64) (*domain.SearchDocument, error) {
	data, err := r.client.Client.Get(ctx, r.documentKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.SearchDocumentRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		// Битая запись равносильна промаху; запись будет перезаписана.
		r.logger.Warnf("Redis unmarshal failed for product %d: %v", productID, err)
		return nil, nil
	}

	return r.conv.ToEntity(&model)
}

// SetDocument кэширует документ с TTL из конфигурации.
func (r *CacheRepo) SetDocument(ctx context.Context, doc *domain.SearchDocument) error {
	data, err := json.Marshal(r.conv.ToRedisModel(doc))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	key := r.documentKey(doc.ProductID)
	if err := r.client.Client.Set(ctx, key, data, r.cfg.DocumentTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// DeleteDocument инвалидирует кэш документа.
func (r *CacheRepo) DeleteDocument(ctx context.Context, productID int64) error {
	if err := r.client.Client.Del(ctx, r.documentKey(productID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *CacheRepo) documentKey(productID int64) string {
	return fmt.Sprintf("search_doc:%d", productID)
}
