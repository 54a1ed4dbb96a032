package pgdb

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/repository/pgdb/converter"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/tr"
)

// SavedSearchRepo реализует репозиторий сохранённых поисков поверх PostgreSQL.
type SavedSearchRepo struct {
	pool *pgxpool.Pool
	conv converter.SavedSearchConverter
}

func NewSavedSearchRepo(pool *pgxpool.Pool, conv converter.SavedSearchConverter) *SavedSearchRepo {
	return &SavedSearchRepo{
		pool: pool,
		conv: conv,
	}
}

// ListForNotify возвращает сохранённые поиски пользователя с включёнными
// уведомлениями о новых товарах.
func (s *SavedSearchRepo) ListForNotify(ctx context.Context, userID int64) ([]domain.SavedSearch, error) {
	query := `
		SELECT
			id, user_id, name, query, category_ids, brands, colors,
			materials, sizes, condition, price_min::text, price_max::text,
			notify_new_items, last_notified_at, created_at
		FROM saved_searches
		WHERE user_id = $1 AND notify_new_items
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.SavedSearch, 0)
	for rows.Next() {
		var m converter.SavedSearchModel
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Name, &m.Query, &m.CategoryIDs, &m.Brands, &m.Colors,
			&m.Materials, &m.Sizes, &m.Condition, &m.PriceMin, &m.PriceMax,
			&m.NotifyNewItems, &m.LastNotifiedAt, &m.CreatedAt,
		)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		search, err := s.conv.ToEntity(&m)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *search)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// AdvanceLastNotified продвигает отметку последнего уведомления вперёд.
// GREATEST защищает от отката при конкурирующих запусках: отметка
// монотонно не убывает. Выполняется в транзакции из контекста.
func (s *SavedSearchRepo) AdvanceLastNotified(ctx context.Context, searchID int64, to time.Time) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE saved_searches
		SET last_notified_at = GREATEST(last_notified_at, $2)
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, searchID, to); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
