package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payload описывает дополнительную информацию вектора
type Payload map[string]any

// Embedding — векторное представление главного изображения товара плюс
// денормализованные поля для фильтрации, ключ — ID товара.
// Запись никогда не удаляется пайплайном: при деактивации или удалении
// товара переключается только флаг is_active.
type Embedding struct {
	ProductID int64
	Vector    []float32
	Payload   Payload
}

func NewEmbedding(productID int64, vector []float32, payload Payload) *Embedding {
	return &Embedding{
		ProductID: productID,
		Vector:    vector,
		Payload:   payload,
	}
}

// NewEmbeddingPayload собирает payload записи при полной генерации вектора.
func NewEmbeddingPayload(p *Product, imageURL string, modelVersion string) Payload {
	return Payload{
		"product_id":    p.ID,
		"image_url":     imageURL,
		"category_ids":  payloadList(p.CategoryIDs),
		"brand":         firstOrEmpty(p.Brands),
		"price_bucket":  PriceBucket(p.Price),
		"is_active":     p.IsActive,
		"created_at":    time.Now().UTC().UnixNano(),
		"model_version": modelVersion,
	}
}

// NewEmbeddingMetadata собирает payload-слияние при изменении товара без
// смены главного изображения — вектор не трогается, инференс не вызывается.
func NewEmbeddingMetadata(p *Product) Payload {
	return Payload{
		"category_ids": payloadList(p.CategoryIDs),
		"brand":        firstOrEmpty(p.Brands),
		"price_bucket": PriceBucket(p.Price),
		"is_active":    p.IsActive,
		"updated_at":   time.Now().UTC().UnixNano(),
	}
}

var (
	priceBucketLow  = decimal.NewFromInt(20)
	priceBucketHigh = decimal.NewFromInt(100)
)

// PriceBucket относит цену к ценовой корзине:
// < 20 — low, 20..100 — medium, > 100 — high.
func PriceBucket(price decimal.Decimal) string {
	switch {
	case price.LessThan(priceBucketLow):
		return "low"
	case price.GreaterThan(priceBucketHigh):
		return "high"
	default:
		return "medium"
	}
}

// payloadList переводит срез в форму, пригодную для payload-конвертации.
func payloadList(ids []int64) []any {
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}
	return list
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
