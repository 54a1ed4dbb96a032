package usecase

import (
	"context"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
)

type IndexerUC interface {
	HandleProductEvent(ctx context.Context, evt *domain.ProductEvent) error
}

type EmbeddingUC interface {
	HandleProductEvent(ctx context.Context, evt *domain.ProductEvent) error
}

type MatcherUC interface {
	Run(ctx context.Context) error
}
