package qdrant

import (
	"context"

	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// EmbeddingRepo хранит векторные представления изображений товаров в Qdrant.
// ID точки — числовой ID товара, поэтому апсерт по тому же товару заменяет
// точку целиком, а слияние payload не трогает вектор.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Get возвращает запись товара или nil без ошибки, если записи нет.
func (q *EmbeddingRepo) Get(ctx context.Context, productID int64) (*domain.Embedding, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(uint64(productID))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	point := points[0]

	var vector []float32
	if v := point.GetVectors().GetVector(); v != nil {
		vector = v.GetData()
	}

	payload := make(domain.Payload, len(point.GetPayload()))
	for key, value := range point.GetPayload() {
		payload[key] = value.AsInterface()
	}

	return domain.NewEmbedding(productID, vector, payload), nil
}

// Upsert сохраняет или заменяет запись товара целиком: вектор и payload.
func (q *EmbeddingRepo) Upsert(ctx context.Context, emb *domain.Embedding) error {
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(uint64(emb.ProductID)),
				Vectors: qdrant.NewVectors(emb.Vector...),
				Payload: qdrant.NewValueMap(emb.Payload),
			},
		},
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// MergePayload обновляет перечисленные ключи payload, не трогая вектор
// и остальные ключи.
func (q *EmbeddingRepo) MergePayload(ctx context.Context, productID int64, payload domain.Payload) error {
	_, err := q.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Payload:        qdrant.NewValueMap(payload),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewIDNum(uint64(productID))),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// SetActive переключает флаг is_active записи. Запись не удаляется вместе
// с товаром, вектор остаётся доступным для офлайн-аналитики.
func (q *EmbeddingRepo) SetActive(ctx context.Context, productID int64, active bool) error {
	_, err := q.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Payload:        qdrant.NewValueMap(map[string]any{"is_active": active}),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewIDNum(uint64(productID))),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
