package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
)

func testInferenceCfg() *cfg.InferenceCfg {
	return &cfg.InferenceCfg{VectorSize: 4}
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

func newEmbeddingFixture(t *testing.T) (*EmbeddingUseCase, *mockEmbeddingRepo, *mockImageSource, *mockInference) {
	t.Helper()

	embRepo := &mockEmbeddingRepo{}
	images := &mockImageSource{data: []byte("jpeg-bytes")}
	inference := &mockInference{res: &EmbedImageRes{Vector: testVector(), ModelVersion: "clip-v2"}}

	uc := NewEmbeddingUC(embRepo, images, inference, testInferenceCfg(), testMetrics(), nopLogger{})

	return uc, embRepo, images, inference
}

func TestEmbedding_CreatedGeneratesVector(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)

	p := testProduct()
	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)

	require.Len(t, embRepo.upserted, 1)
	emb := embRepo.upserted[0]
	assert.Equal(t, int64(42), emb.ProductID)
	assert.Equal(t, testVector(), emb.Vector)
	assert.Equal(t, "https://cdn.example.com/42/main.jpg", emb.Payload["image_url"])
	assert.Equal(t, "clip-v2", emb.Payload["model_version"])
	assert.Equal(t, "medium", emb.Payload["price_bucket"])
}

func TestEmbedding_CreatedWithoutImageSkipped(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)

	p := testProduct()
	p.Images = nil

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductCreated,
		ProductID: p.ID,
		After:     p,
	})
	require.NoError(t, err)
	assert.Empty(t, embRepo.upserted)
}

func TestEmbedding_UpdatedMetadataMergedWithoutInference(t *testing.T) {
	uc, embRepo, _, inference := newEmbeddingFixture(t)
	embRepo.existing = domain.NewEmbedding(42, testVector(), domain.Payload{})
	inference.err = assert.AnError // инференс не должен вызываться вовсе

	before := testProduct()
	after := testProduct()
	after.Title = "Кроссовки Nike Air Max"

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    before,
		After:     after,
	})
	require.NoError(t, err)

	assert.Empty(t, embRepo.upserted)
	require.Contains(t, embRepo.merged, int64(42))
	assert.Equal(t, true, embRepo.merged[42]["is_active"])
}

func TestEmbedding_PrimaryImageChangeRegenerates(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)
	embRepo.existing = domain.NewEmbedding(42, testVector(), domain.Payload{})

	before := testProduct()
	after := testProduct()
	after.Images = []domain.ProductImage{{URL: "https://cdn.example.com/42/new.jpg", Position: 0}}

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    before,
		After:     after,
	})
	require.NoError(t, err)

	require.Len(t, embRepo.upserted, 1)
	assert.Equal(t, "https://cdn.example.com/42/new.jpg", embRepo.upserted[0].Payload["image_url"])
	assert.Empty(t, embRepo.merged)
}

func TestEmbedding_DeactivationFlipsFlagOnly(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)

	before := testProduct()
	after := testProduct()
	after.IsActive = false

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    before,
		After:     after,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, embRepo.deactivated)
	assert.Empty(t, embRepo.upserted)
	assert.Empty(t, embRepo.merged)
}

func TestEmbedding_ImageChangeDuringDeactivationRegenerates(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)
	embRepo.existing = domain.NewEmbedding(42, testVector(), domain.Payload{})

	// Смена изображения и деактивация в одном событии: вектор обязан
	// пересчитаться по новому изображению, иначе после реактивации товара
	// останется вектор старого. Флаг активности едет внутри payload.
	before := testProduct()
	after := testProduct()
	after.IsActive = false
	after.Images = []domain.ProductImage{{URL: "https://cdn.example.com/42/new.jpg", Position: 0}}

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    before,
		After:     after,
	})
	require.NoError(t, err)

	require.Len(t, embRepo.upserted, 1)
	assert.Equal(t, "https://cdn.example.com/42/new.jpg", embRepo.upserted[0].Payload["image_url"])
	assert.Equal(t, false, embRepo.upserted[0].Payload["is_active"])
	assert.Empty(t, embRepo.deactivated)
}

func TestEmbedding_ImageRemovedDuringDeactivationFlipsFlag(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)

	before := testProduct()
	after := testProduct()
	after.IsActive = false
	after.Images = nil

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    before,
		After:     after,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, embRepo.deactivated)
	assert.Empty(t, embRepo.upserted)
}

func TestEmbedding_DeleteDeactivatesRecord(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductDeleted,
		ProductID: 42,
		Before:    testProduct(),
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, embRepo.deactivated)
}

func TestEmbedding_MissingRecordFallsBackToGenerate(t *testing.T) {
	uc, embRepo, _, _ := newEmbeddingFixture(t)
	// Записи нет: товар создан до появления пайплайна.
	embRepo.existing = nil

	err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
		Type:      domain.ProductUpdated,
		ProductID: 42,
		Before:    testProduct(),
		After:     testProduct(),
	})
	require.NoError(t, err)

	assert.Len(t, embRepo.upserted, 1)
	assert.Empty(t, embRepo.merged)
}

func TestEmbedding_FailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockEmbeddingRepo, *mockImageSource, *mockInference)
	}{
		{
			name: "image fetch error",
			setup: func(_ *mockEmbeddingRepo, img *mockImageSource, _ *mockInference) {
				img.err = assert.AnError
			},
		},
		{
			name: "inference error",
			setup: func(_ *mockEmbeddingRepo, _ *mockImageSource, inf *mockInference) {
				inf.err = assert.AnError
			},
		},
		{
			name: "empty vector",
			setup: func(_ *mockEmbeddingRepo, _ *mockImageSource, inf *mockInference) {
				inf.res = &EmbedImageRes{Vector: nil}
			},
		},
		{
			name: "dimension mismatch",
			setup: func(_ *mockEmbeddingRepo, _ *mockImageSource, inf *mockInference) {
				inf.res = &EmbedImageRes{Vector: []float32{0.1, 0.2}}
			},
		},
		{
			name: "store error",
			setup: func(repo *mockEmbeddingRepo, _ *mockImageSource, _ *mockInference) {
				repo.upsertErr = assert.AnError
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, embRepo, images, inference := newEmbeddingFixture(t)
			tt.setup(embRepo, images, inference)

			// Сбой генерации никогда не пробрасывается в путь записи.
			err := uc.HandleProductEvent(context.Background(), &domain.ProductEvent{
				Type:      domain.ProductCreated,
				ProductID: 42,
				After:     testProduct(),
			})
			require.NoError(t, err)
			assert.Empty(t, embRepo.upserted)
		})
	}
}
