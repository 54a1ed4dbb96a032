package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
)

func testIndexerCfg() *cfg.IndexerCfg {
	return &cfg.IndexerCfg{
		DebounceDelay:    time.Millisecond,
		GeohashPrecision: 7,
		WriteTimeout:     time.Second,
	}
}

func testProduct() *domain.Product {
	return &domain.Product{
		ID:          42,
		Title:       "Кроссовки Nike Air",
		Description: "Новые, размер 42",
		CategoryIDs: []int64{7},
		Brands:      []string{"Nike"},
		Size:        "42",
		Condition:   "new",
		Price:       decimal.NewFromInt(90),
		Images: []domain.ProductImage{
			{URL: "https://cdn.example.com/42/main.jpg", Position: 0},
		},
		Location:   &domain.GeoPoint{Lat: 55.7558, Lon: 37.6173, City: "Москва"},
		Views:      10,
		Likes:      2,
		IsActive:   true,
		IsApproved: true,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newIndexerFixture(t *testing.T) (*IndexerUseCase, *mockProductRepo, *mockSearchIndexRepo, *mockCacheRepo, *syncDebouncer) {
	t.Helper()

	productRepo := &mockProductRepo{}
	indexRepo := &mockSearchIndexRepo{}
	cacheRepo := &mockCacheRepo{}
	deb := &syncDebouncer{}

	uc := NewIndexerUC(productRepo, indexRepo, cacheRepo, deb, testIndexerCfg(), testMetrics(), nopLogger{})
	uc.now = func() time.Time {
		return time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	}

	return uc, productRepo, indexRepo, cacheRepo, deb
}

func TestIndexer_UpsertsActiveProduct(t *testing.T) {
	uc, _, indexRepo, cacheRepo, _ := newIndexerFixture(t)

	p := testProduct()
	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)

	require.Len(t, indexRepo.upserted, 1)
	doc := indexRepo.upserted[0]
	assert.Equal(t, int64(42), doc.ProductID)
	assert.Equal(t, "Москва", doc.City)
	assert.Equal(t, "https://cdn.example.com/42/main.jpg", doc.ImageURL)
	assert.Contains(t, doc.Keywords, "nike")
	assert.Contains(t, doc.Keywords, "category:7")
	assert.NotEmpty(t, doc.Geohash)

	// Запись продублирована в кэш последней версии.
	assert.Equal(t, doc, cacheRepo.docs[42])
}

func TestIndexer_InactiveProductDeleted(t *testing.T) {
	uc, _, indexRepo, cacheRepo, deb := newIndexerFixture(t)

	p := testProduct()
	p.IsActive = false

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: p.ID,
		Before:    testProduct(),
		After:     p,
	})
	require.NoError(t, err)

	assert.Empty(t, indexRepo.upserted)
	assert.Equal(t, []int64{42}, indexRepo.deleted)
	assert.Equal(t, []int64{42}, cacheRepo.deleted)
	// Взведённый таймер записи снят — апсерт не воскресит документ.
	assert.Contains(t, deb.cancelled, "index:42")
}

func TestIndexer_DeleteEvent(t *testing.T) {
	uc, _, indexRepo, _, _ := newIndexerFixture(t)

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductDeleted,
		ProductID: 42,
		Before:    testProduct(),
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, indexRepo.deleted)
}

func TestIndexer_UnchangedProductSkipped(t *testing.T) {
	uc, _, indexRepo, _, _ := newIndexerFixture(t)

	evt := &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: 42,
		After:     testProduct(),
	}

	require.NoError(t, uc.HandleProductEvent(context.Background(), evt))
	require.Len(t, indexRepo.upserted, 1)

	// Повторная доставка того же события: документ байт-идентичен
	// закэшированному, второй записи нет.
	evt2 := &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    testProduct(),
		After:     testProduct(),
	}
	require.NoError(t, uc.HandleProductEvent(context.Background(), evt2))
	assert.Len(t, indexRepo.upserted, 1)
}

func TestIndexer_GeohashWriteBack(t *testing.T) {
	uc, productRepo, indexRepo, _, deb := newIndexerFixture(t)

	p := testProduct()
	require.Empty(t, p.Geohash)

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)

	// Geohash дописан в товар и совпадает с документом индекса.
	require.Len(t, indexRepo.upserted, 1)
	assert.Equal(t, indexRepo.upserted[0].Geohash, productRepo.geohashes[42])
	assert.Len(t, productRepo.geohashes[42], 7)

	// Дозапись и запись индекса идут под независимыми ключами.
	assert.Contains(t, deb.scheduled, "geohash:42")
	assert.Contains(t, deb.scheduled, "index:42")
}

func TestIndexer_PresetGeohashNotRecomputed(t *testing.T) {
	uc, productRepo, indexRepo, _, deb := newIndexerFixture(t)

	p := testProduct()
	p.Geohash = "ucfv0j0"

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)

	require.Len(t, indexRepo.upserted, 1)
	assert.Equal(t, "ucfv0j0", indexRepo.upserted[0].Geohash)
	assert.Empty(t, productRepo.geohashes)
	assert.NotContains(t, deb.scheduled, "geohash:42")
}

func TestIndexer_LegacyFieldsNormalized(t *testing.T) {
	uc, _, indexRepo, _, _ := newIndexerFixture(t)

	p := testProduct()
	p.Brands = nil
	p.Brand = "Adidas"

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)

	require.Len(t, indexRepo.upserted, 1)
	assert.Equal(t, []string{"Adidas"}, indexRepo.upserted[0].Brands)
}

func TestIndexer_WriteFailureDoesNotPropagate(t *testing.T) {
	uc, _, indexRepo, cacheRepo, _ := newIndexerFixture(t)
	indexRepo.upsertErr = assert.AnError

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: 42,
		After:     testProduct(),
	})
	require.NoError(t, err)

	// Неудачная запись не попадает в кэш: следующая попытка не будет
	// ошибочно пропущена как "без изменений".
	assert.Empty(t, cacheRepo.docs)
}

func TestBuildKeywords(t *testing.T) {
	p := &domain.Product{
		Title:       "Кожаная куртка, размер M!",
		Description: "Натуральная кожа",
		Brands:      []string{"Zara"},
		CategoryIDs: []int64{3, 9},
	}

	got := buildKeywords(p)

	assert.Contains(t, got, "кожаная")
	assert.Contains(t, got, "куртка")
	assert.Contains(t, got, "zara")
	assert.Contains(t, got, "category:3")
	assert.Contains(t, got, "category:9")
	// Односимвольные токены отброшены.
	assert.NotContains(t, got, "m")
	assert.IsIncreasing(t, got)
}

func TestPopularityScore(t *testing.T) {
	day := 24 * time.Hour

	// Строго растёт по просмотрам и лайкам.
	assert.Greater(t, popularityScore(10, 0, day), popularityScore(5, 0, day))
	assert.Greater(t, popularityScore(0, 3, day), popularityScore(0, 1, day))

	// Лайк весит больше просмотра.
	assert.Greater(t, popularityScore(0, 1, day), popularityScore(1, 0, day))

	// Не растёт с возрастом.
	assert.Greater(t, popularityScore(10, 2, day), popularityScore(10, 2, 30*day))

	// Товар без активности всё равно получает ненулевой балл.
	assert.Positive(t, popularityScore(0, 0, day))

	// Часы из будущего не дают отрицательный возраст.
	assert.Equal(t, popularityScore(5, 1, 0), popularityScore(5, 1, -time.Hour))
}
