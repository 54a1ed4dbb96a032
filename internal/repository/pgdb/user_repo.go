package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
)

// UserRepo реализует репозиторий получателей уведомлений поверх PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// ListWithDeviceTokens возвращает пользователей, у которых есть хотя бы одно
// зарегистрированное устройство. Пользователи без токенов матчеру не нужны.
func (u *UserRepo) ListWithDeviceTokens(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, device_tokens
		FROM users
		WHERE cardinality(device_tokens) > 0
		ORDER BY id
	`

	rows, err := u.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.DeviceTokens); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// RemoveDeviceTokens удаляет токены с подтверждённой постоянной ошибкой
// доставки. Временные ошибки сюда не попадают.
func (u *UserRepo) RemoveDeviceTokens(ctx context.Context, userID int64, tokens []string) error {
	query := `
		UPDATE users
		SET device_tokens = (
			SELECT COALESCE(array_agg(t), '{}')
			FROM unnest(device_tokens) t
			WHERE t <> ALL($2::text[])
		)
		WHERE id = $1
	`

	if _, err := u.pool.Exec(ctx, query, userID, tokens); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
