package pgdb

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/repository/pgdb/converter"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

const productColumns = `
	id, title, description, category_ids,
	brand, brands, color, colors, material, materials,
	size, condition, price::text, images,
	lat, lon, city, geohash,
	views, likes, is_active, is_approved, is_sold,
	created_at, updated_at
`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
// Товары пишет каталожный сервис; пайплайн читает их и дописывает
// только вычисленный geohash.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	model, err := scanProduct(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model)
}

// FindNewInWindow возвращает активные одобренные непроданные товары,
// созданные в окне (since, until]. Кандидаты сужаются одним предикатом:
// категориями, если они заданы, иначе брендами; пустой предикат не сужает.
// Остальные фильтры сохранённого поиска применяются вызывающей стороной
// в памяти.
func (p *ProductRepo) FindNewInWindow(ctx context.Context, q *usecase.NewProductsQuery) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE created_at > $1 AND created_at <= $2
		  AND is_active AND is_approved AND NOT is_sold
		  AND (
			CASE
				WHEN cardinality($3::bigint[]) > 0 THEN category_ids && $3::bigint[]
				WHEN cardinality($4::text[]) > 0 THEN EXISTS (
					SELECT 1 FROM unnest(brands || ARRAY[brand]) b
					WHERE lower(b) = ANY($4::text[])
				)
				ELSE true
			END
		  )
		ORDER BY created_at
	`

	brands := make([]string, 0, len(q.Brands))
	for _, b := range q.Brands {
		brands = append(brands, strings.ToLower(b))
	}

	rows, err := p.pool.Query(ctx, query, q.Since, q.Until, q.CategoryIDs, brands)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		product, err := p.conv.ToEntity(model)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// SetGeohash дописывает вычисленный geohash в товар. Уже заполненное
// значение не перезаписывается: товар мог переехать, и свежий geohash
// запишет каталожный сервис вместе с новой геопозицией.
func (p *ProductRepo) SetGeohash(ctx context.Context, id int64, geohash string) error {
	query := `
		UPDATE products
		SET geohash = $2
		WHERE id = $1 AND (geohash IS NULL OR geohash = '')
	`

	if _, err := p.pool.Exec(ctx, query, id, geohash); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*converter.ProductModel, error) {
	var m converter.ProductModel
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.CategoryIDs,
		&m.Brand, &m.Brands, &m.Color, &m.Colors, &m.Material, &m.Materials,
		&m.Size, &m.Condition, &m.Price, &m.Images,
		&m.Lat, &m.Lon, &m.City, &m.Geohash,
		&m.Views, &m.Likes, &m.IsActive, &m.IsApproved, &m.IsSold,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// ErrProductNotFound сообщает об отсутствии товара.
var ErrProductNotFound = errors.New("product not found")
