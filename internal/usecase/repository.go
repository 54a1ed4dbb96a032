package usecase

import (
	"context"
	"time"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// FindNewInWindow возвращает активные непроданные товары, созданные в
	// окне (Since, Until], суженные одним самым селективным предикатом.
	FindNewInWindow(ctx context.Context, q *NewProductsQuery) ([]domain.Product, error)
	SetGeohash(ctx context.Context, id int64, geohash string) error
}

type SearchIndexRepository interface {
	// Upsert записывает документ целиком, заменяя существующую версию.
	Upsert(ctx context.Context, doc *domain.SearchDocument) error
	// Delete — no-op, если документа нет.
	Delete(ctx context.Context, productID int64) error
}

type SavedSearchRepository interface {
	// ListForNotify возвращает сохранённые поиски пользователя с включённым
	// флагом notify_new_items.
	ListForNotify(ctx context.Context, userID int64) ([]domain.SavedSearch, error)
	// AdvanceLastNotified продвигает lastNotifiedAt вперёд; откат назад
	// невозможен. Выполняется в транзакции из контекста.
	AdvanceLastNotified(ctx context.Context, searchID int64, to time.Time) error
}

type UserRepository interface {
	ListWithDeviceTokens(ctx context.Context) ([]domain.User, error)
	RemoveDeviceTokens(ctx context.Context, userID int64, tokens []string) error
}

type DispatchLogRepository interface {
	// Create пишет запись аудита рассылки. Выполняется в транзакции из контекста.
	Create(ctx context.Context, entry *DispatchLogEntry) error
}

type EmbeddingRepository interface {
	// Get возвращает nil без ошибки, если записи нет.
	Get(ctx context.Context, productID int64) (*domain.Embedding, error)
	Upsert(ctx context.Context, emb *domain.Embedding) error
	// MergePayload обновляет метаданные записи, не трогая вектор.
	MergePayload(ctx context.Context, productID int64, payload domain.Payload) error
	SetActive(ctx context.Context, productID int64, active bool) error
}

type ImageRepository interface {
	Download(ctx context.Context, objectKey string) ([]byte, error)
}

type CacheRepository interface {
	GetDocument(ctx context.Context, productID int64) (*domain.SearchDocument, error)
	SetDocument(ctx context.Context, doc *domain.SearchDocument) error
	DeleteDocument(ctx context.Context, productID int64) error
}
