package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/geohash"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// IndexerUseCase — проектор поискового индекса. Держит документ индекса в
// точном соответствии с товаром: активный и одобренный товар проецируется,
// всё остальное удаляется. Записи дебаунсятся по ключу товара, чтобы серия
// быстрых правок схлопнулась в один апсерт.
type IndexerUseCase struct {
	productRepo ProductRepository
	indexRepo   SearchIndexRepository
	cacheRepo   CacheRepository
	debouncer   Debouncer
	cfg         *cfg.IndexerCfg
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
}

func NewIndexerUC(
	productRepo ProductRepository,
	indexRepo SearchIndexRepository,
	cacheRepo CacheRepository,
	debouncer Debouncer,
	cfg *cfg.IndexerCfg,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *IndexerUseCase {
	return &IndexerUseCase{
		productRepo: productRepo,
		indexRepo:   indexRepo,
		cacheRepo:   cacheRepo,
		debouncer:   debouncer,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleProductEvent обрабатывает одно событие изменения товара.
func (u *IndexerUseCase) HandleProductEvent(ctx context.Context, evt *domain.ProductEvent) error {
	// Удаление, деактивация и снятие с модерации схлопываются в один путь:
	// документа в индексе быть не должно.
	if evt.Type == domain.ProductDeleted || evt.After == nil || !evt.After.Indexable() {
		return u.removeFromIndex(ctx, evt.ProductID)
	}

	product := *evt.After
	product.Normalize()

	gh := product.Geohash
	if gh == "" && product.Location != nil {
		gh = geohash.Encode(product.Location.Lat, product.Location.Lon, u.cfg.GeohashPrecision)

		// Денормализованная дозапись geohash в сам товар идёт под отдельным
		// ключом: она не должна отменять таймер записи в индекс.
		u.scheduleGeohashWriteBack(product.ID, gh)
	}

	doc := u.buildDocument(&product, gh, u.now())

	// Повторная проекция неизменённого товара не порождает записи.
	if u.unchanged(ctx, doc) {
		u.metrics.IndexSkipped.Inc()
		return nil
	}

	u.debouncer.Schedule(indexKey(product.ID), u.cfg.DebounceDelay, func() {
		u.writeDocument(doc)
	})

	return nil
}

// removeFromIndex удаляет документ и снимает взведённый таймер записи,
// чтобы отложенный апсерт не воскресил документ после деактивации.
func (u *IndexerUseCase) removeFromIndex(ctx context.Context, productID int64) error {
	const op = "IndexerUseCase.removeFromIndex"

	u.debouncer.Cancel(indexKey(productID))

	if err := u.indexRepo.Delete(ctx, productID); err != nil {
		return e.Wrap(op, err)
	}
	u.metrics.IndexDeletes.Inc()

	if err := u.cacheRepo.DeleteDocument(ctx, productID); err != nil {
		u.logger.Warnf("%s: cache invalidation failed for product %d: %v", op, productID, err)
	}

	return nil
}

// writeDocument — отложенная запись документа. Выполняется вне контекста
// события, ошибки логируются и не пробрасываются: сбой записи не должен
// заклинить обработку последующих событий этого товара.
func (u *IndexerUseCase) writeDocument(doc *domain.SearchDocument) {
	const op = "IndexerUseCase.writeDocument"

	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.WriteTimeout)
	defer cancel()

	if err := u.indexRepo.Upsert(ctx, doc); err != nil {
		u.metrics.IndexWriteFailures.Inc()
		u.logger.Warnf("%s: index upsert failed for product %d: %v", op, doc.ProductID, err)
		return
	}
	u.metrics.IndexUpserts.Inc()

	if err := u.cacheRepo.SetDocument(ctx, doc); err != nil {
		u.logger.Warnf("%s: cache refresh failed for product %d: %v", op, doc.ProductID, err)
	}
}

func (u *IndexerUseCase) scheduleGeohashWriteBack(productID int64, gh string) {
	const op = "IndexerUseCase.scheduleGeohashWriteBack"

	u.debouncer.Schedule(geohashKey(productID), u.cfg.DebounceDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), u.cfg.WriteTimeout)
		defer cancel()

		if err := u.productRepo.SetGeohash(ctx, productID, gh); err != nil {
			u.logger.Warnf("%s: geohash write-back failed for product %d: %v", op, productID, err)
		}
	})
}

// unchanged сравнивает построенный документ с последней записанной версией
// из кэша. Совпадение байт в байт означает, что запись не нужна.
func (u *IndexerUseCase) unchanged(ctx context.Context, doc *domain.SearchDocument) bool {
	cached, err := u.cacheRepo.GetDocument(ctx, doc.ProductID)
	if err != nil || cached == nil {
		return false
	}

	return documentsEqual(doc, cached)
}

// buildDocument строит денормализованный документ из нормализованного товара.
func (u *IndexerUseCase) buildDocument(p *domain.Product, gh string, now time.Time) *domain.SearchDocument {
	city := ""
	if p.Location != nil {
		city = p.Location.City
	}

	return &domain.SearchDocument{
		ProductID:   p.ID,
		Title:       p.Title,
		Description: p.Description,
		Brands:      p.Brands,
		CategoryIDs: p.CategoryIDs,
		Size:        p.Size,
		Condition:   p.Condition,
		Price:       p.Price,
		City:        city,
		Geohash:     gh,
		ImageURL:    p.PrimaryImageURL(),
		Keywords:    buildKeywords(p),
		Popularity:  popularityScore(p.Views, p.Likes, now.Sub(p.CreatedAt)),
		IsSold:      p.IsSold,
		CreatedAt:   p.CreatedAt,
	}
}

// buildKeywords строит нормализованный набор ключевых слов из названия,
// описания, брендов и категорий. Это не ранжируемый полнотекстовый индекс:
// набор поддерживает только запросы на вхождение ключа.
func buildKeywords(p *domain.Product) []string {
	seen := make(map[string]struct{})

	addTokens := func(s string) {
		tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, token := range tokens {
			if len([]rune(token)) < 2 {
				continue
			}
			seen[token] = struct{}{}
		}
	}

	addTokens(p.Title)
	addTokens(p.Description)
	for _, brand := range p.Brands {
		addTokens(brand)
	}
	for _, categoryID := range p.CategoryIDs {
		seen["category:"+strconv.FormatInt(categoryID, 10)] = struct{}{}
	}

	keywords := make([]string, 0, len(seen))
	for token := range seen {
		keywords = append(keywords, token)
	}

	// Стабильный порядок — проекция одного и того же состояния товара
	// обязана давать байт-идентичный документ.
	sort.Strings(keywords)

	return keywords
}

// popularityScore вычисляет популярность товара. Контракт: строго растёт по
// просмотрам и лайкам, не растёт по возрасту. Конкретная формула —
// гравитационное затухание в духе HN.
func popularityScore(views, likes int64, age time.Duration) float64 {
	const (
		likeWeight = 3.0
		gravity    = 1.5
	)

	ageDays := age.Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	return (float64(views) + likeWeight*float64(likes) + 1) / math.Pow(ageDays+2, gravity)
}

// documentsEqual сравнивает документы через канонический JSON.
func documentsEqual(a, b *domain.SearchDocument) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(aj, bj)
}

func indexKey(productID int64) string {
	return fmt.Sprintf("index:%d", productID)
}

func geohashKey(productID int64) string {
	return fmt.Sprintf("geohash:%d", productID)
}
