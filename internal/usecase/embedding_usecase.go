package usecase

import (
	"context"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// EmbeddingUseCase поддерживает векторное представление главного изображения
// товара. Строго best-effort: любой сбой на любом шаге логируется, операция
// молча прерывается и никогда не возвращает ошибку в путь записи — отсутствие
// или устаревание вектора является допустимым деградированным состоянием,
// повторная попытка произойдёт на следующем подходящем событии.
type EmbeddingUseCase struct {
	embeddingRepo EmbeddingRepository
	imageSource   ImageSourceInfra
	inference     InferenceInfra
	cfg           *cfg.InferenceCfg
	metrics       *metrics.Metrics
	logger        logger.Logger
}

func NewEmbeddingUC(
	embeddingRepo EmbeddingRepository,
	imageSource ImageSourceInfra,
	inference InferenceInfra,
	cfg *cfg.InferenceCfg,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *EmbeddingUseCase {
	return &EmbeddingUseCase{
		embeddingRepo: embeddingRepo,
		imageSource:   imageSource,
		inference:     inference,
		cfg:           cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleProductEvent обрабатывает одно событие изменения товара.
// Возвращаемая ошибка всегда nil: см. комментарий к типу.
func (u *EmbeddingUseCase) HandleProductEvent(ctx context.Context, evt *domain.ProductEvent) error {
	const op = "EmbeddingUseCase.HandleProductEvent"

	var err error
	switch evt.Type {
	case domain.ProductCreated:
		err = u.handleCreated(ctx, evt)
	case domain.ProductUpdated:
		err = u.handleUpdated(ctx, evt)
	case domain.ProductDeleted:
		// Запись не удаляется вместе с товаром — только помечается
		// неактивной, чтобы вектор остался доступен офлайн-аналитике.
		err = u.embeddingRepo.SetActive(ctx, evt.ProductID, false)
	default:
		err = e.ErrUnknownEventType
	}

	if err != nil {
		u.metrics.EmbeddingFailures.Inc()
		u.logger.Warnf("%s: embedding operation aborted for product %d: %v", op, evt.ProductID, err)
	}

	return nil
}

func (u *EmbeddingUseCase) handleCreated(ctx context.Context, evt *domain.ProductEvent) error {
	if evt.After == nil {
		return e.ErrProductSnapshotMissing
	}

	product := *evt.After
	product.Normalize()

	if product.PrimaryImageURL() == "" {
		return nil
	}

	return u.generate(ctx, &product)
}

func (u *EmbeddingUseCase) handleUpdated(ctx context.Context, evt *domain.ProductEvent) error {
	if evt.After == nil {
		return e.ErrProductSnapshotMissing
	}

	product := *evt.After
	product.Normalize()

	// Смена главного изображения обесценивает вектор — полная регенерация,
	// в том числе при одновременной деактивации: иначе после реактивации
	// остался бы вектор старого изображения. Payload несёт актуальный
	// is_active. Изображение могло и пропасть — тогда генерировать нечего.
	if primaryImageChanged(evt.Before, evt.After) && product.PrimaryImageURL() != "" {
		return u.generate(ctx, &product)
	}

	// Деактивация переключает только флаг — вектор и метаданные не трогаются.
	if wasDeactivated(evt.Before, evt.After) {
		return u.embeddingRepo.SetActive(ctx, product.ID, false)
	}

	// Любое другое изменение — дешёвое слияние метаданных без инференса.
	// Если записи ещё нет (товар создан до появления пайплайна либо прошлая
	// генерация не удалась) — откат к полной генерации.
	existing, err := u.embeddingRepo.Get(ctx, product.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if product.PrimaryImageURL() == "" {
			return nil
		}
		return u.generate(ctx, &product)
	}

	if err := u.embeddingRepo.MergePayload(ctx, product.ID, domain.NewEmbeddingMetadata(&product)); err != nil {
		return err
	}
	u.metrics.EmbeddingsMerged.Inc()

	return nil
}

// generate выполняет полную генерацию: байты изображения, один вызов
// инференса, проверка размерности, апсерт записи.
func (u *EmbeddingUseCase) generate(ctx context.Context, product *domain.Product) error {
	const op = "EmbeddingUseCase.generate"

	imageURL := product.PrimaryImageURL()

	data, err := u.imageSource.FetchImage(ctx, imageURL)
	if err != nil {
		return e.Wrap(op, err)
	}

	res, err := u.inference.EmbedImage(ctx, NewEmbedImageReq(data))
	if err != nil {
		return e.Wrap(op, err)
	}

	if len(res.Vector) == 0 {
		return e.Wrap(op, e.ErrEmptyVector)
	}
	if len(res.Vector) != u.cfg.VectorSize {
		return e.Wrap(op, e.ErrVectorDimensionMismatch)
	}

	emb := domain.NewEmbedding(
		product.ID,
		res.Vector,
		domain.NewEmbeddingPayload(product, imageURL, res.ModelVersion),
	)
	if err := u.embeddingRepo.Upsert(ctx, emb); err != nil {
		return e.Wrap(op, err)
	}
	u.metrics.EmbeddingsGenerated.Inc()

	return nil
}

func wasDeactivated(before, after *domain.Product) bool {
	if after.IsActive {
		return false
	}

	return before == nil || before.IsActive
}

func primaryImageChanged(before, after *domain.Product) bool {
	if before == nil {
		return true
	}

	return before.PrimaryImageURL() != after.PrimaryImageURL()
}
