package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/tr"
)

// DispatchLogRepo хранит аудит рассылок по сохранённым поискам.
type DispatchLogRepo struct {
	pool *pgxpool.Pool
}

func NewDispatchLogRepo(pool *pgxpool.Pool) *DispatchLogRepo {
	return &DispatchLogRepo{pool: pool}
}

// Create пишет запись аудита. Выполняется в той же транзакции, что и
// продвижение last_notified_at: запись существует тогда и только тогда,
// когда окно продвинуто.
func (d *DispatchLogRepo) Create(ctx context.Context, entry *usecase.DispatchLogEntry) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO push_dispatch_log (
			id, search_id, user_id, new_items_count, succeeded, failed, sent_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, query,
		entry.ID, entry.SearchID, entry.UserID, entry.NewItemsCount,
		entry.Succeeded, entry.Failed, entry.SentAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
