package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/repository/pgdb/converter"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// SearchIndexRepo хранит денормализованные документы поискового индекса.
// Единственный писатель — проектор индекса.
type SearchIndexRepo struct {
	pool *pgxpool.Pool
	conv converter.SearchDocumentConverter
}

func NewSearchIndexRepo(pool *pgxpool.Pool, conv converter.SearchDocumentConverter) *SearchIndexRepo {
	return &SearchIndexRepo{
		pool: pool,
		conv: conv,
	}
}

// Upsert записывает документ целиком: проектор всегда строит полный
// документ из актуального состояния товара, частичных обновлений нет.
func (s *SearchIndexRepo) Upsert(ctx context.Context, doc *domain.SearchDocument) error {
	model := s.conv.ToModel(doc)

	query := `
		INSERT INTO search_index_documents (
			product_id, title, description, brands, category_ids,
			size, condition, price, city, geohash, image_url,
			keywords, popularity, is_sold, created_at, indexed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (product_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			brands = EXCLUDED.brands,
			category_ids = EXCLUDED.category_ids,
			size = EXCLUDED.size,
			condition = EXCLUDED.condition,
			price = EXCLUDED.price,
			city = EXCLUDED.city,
			geohash = EXCLUDED.geohash,
			image_url = EXCLUDED.image_url,
			keywords = EXCLUDED.keywords,
			popularity = EXCLUDED.popularity,
			is_sold = EXCLUDED.is_sold,
			created_at = EXCLUDED.created_at,
			indexed_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		model.ProductID, model.Title, model.Description, model.Brands, model.CategoryIDs,
		model.Size, model.Condition, model.Price, model.City, model.Geohash, model.ImageURL,
		model.Keywords, model.Popularity, model.IsSold, model.CreatedAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Delete удаляет документ; отсутствие записи не является ошибкой.
func (s *SearchIndexRepo) Delete(ctx context.Context, productID int64) error {
	query := `DELETE FROM search_index_documents WHERE product_id = $1`

	if _, err := s.pool.Exec(ctx, query, productID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
