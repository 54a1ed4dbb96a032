package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/semaphore"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// MatcherUseCase сопоставляет сохранённые поиски пользователей с товарами,
// проиндексированными после последнего уведомления, и рассылает push.
// Семантика at-least-once: окно (lastNotifiedAt, now] продвигается только
// после хотя бы одной подтверждённой доставки, поэтому при полном сбое
// рассылки те же кандидаты будут рассмотрены на следующем запуске.
type MatcherUseCase struct {
	userRepo        UserRepository
	savedSearchRepo SavedSearchRepository
	productRepo     ProductRepository
	dispatchLogRepo DispatchLogRepository
	push            PushInfra
	dbPool          transaction.Transactional
	cfg             *cfg.MatcherCfg
	metrics         *metrics.Metrics
	logger          logger.Logger
	now             func() time.Time
}

func NewMatcherUC(
	userRepo UserRepository,
	savedSearchRepo SavedSearchRepository,
	productRepo ProductRepository,
	dispatchLogRepo DispatchLogRepository,
	push PushInfra,
	dbPool transaction.Transactional,
	cfg *cfg.MatcherCfg,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *MatcherUseCase {
	return &MatcherUseCase{
		userRepo:        userRepo,
		savedSearchRepo: savedSearchRepo,
		productRepo:     productRepo,
		dispatchLogRepo: dispatchLogRepo,
		push:            push,
		dbPool:          dbPool,
		cfg:             cfg,
		metrics:         metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// Run выполняет один плановый проход по всем пользователям с устройствами.
// Сбой одного пользователя или одного поиска изолируется и не прерывает
// остальных. Пользователи, не успевшие до дедлайна запуска, будут
// обработаны следующим тиком: матчинг идемпотентен и оконный, чекпоинты
// не нужны.
func (m *MatcherUseCase) Run(ctx context.Context) error {
	const op = "MatcherUseCase.Run"

	m.metrics.MatcherRuns.Inc()
	started := m.now()
	defer func() {
		m.metrics.MatcherRunDuration.Observe(time.Since(started).Seconds())
	}()

	users, err := m.userRepo.ListWithDeviceTokens(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	// Ограниченная конкурентность по пользователям — бережём rate limit
	// push-провайдера.
	sem := semaphore.NewWeighted(int64(m.cfg.Concurrency))
	var wg sync.WaitGroup

	for _, user := range users {
		if err := sem.Acquire(ctx, 1); err != nil {
			m.logger.Warnf("%s: run deadline reached, %v", op, err)
			break
		}

		wg.Add(1)
		go func(user domain.User) {
			defer wg.Done()
			defer sem.Release(1)

			if err := m.processUser(ctx, &user); err != nil {
				m.logger.Warnf("%s: user %d failed: %v", op, user.ID, err)
			}
		}(user)
	}

	wg.Wait()
	return nil
}

func (m *MatcherUseCase) processUser(ctx context.Context, user *domain.User) error {
	const op = "MatcherUseCase.processUser"

	qctx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	searches, err := m.savedSearchRepo.ListForNotify(qctx, user.ID)
	cancel()
	if err != nil {
		return e.Wrap(op, err)
	}

	for i := range searches {
		if err := m.processSearch(ctx, user, &searches[i]); err != nil {
			m.logger.Warnf("%s: saved search %d of user %d failed: %v", op, searches[i].ID, user.ID, err)
		}
	}

	return nil
}

func (m *MatcherUseCase) processSearch(ctx context.Context, user *domain.User, search *domain.SavedSearch) error {
	const op = "MatcherUseCase.processSearch"

	now := m.now()

	matched, err := m.findMatches(ctx, search, now)
	if err != nil {
		return e.Wrap(op, err)
	}
	if len(matched) == 0 {
		return nil
	}
	m.metrics.SearchesMatched.Inc()

	sctx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	res, err := m.push.Send(sctx, m.composePush(user, search, len(matched)))
	cancel()
	if err != nil {
		return e.Wrap(op, err)
	}

	m.metrics.NotificationsSent.Add(float64(res.Succeeded))
	m.metrics.NotificationsFailed.Add(float64(res.Failed))

	// Подтверждённо мёртвые токены убираются из записи пользователя;
	// временные ошибки никакого состояния не меняют.
	if invalid := res.InvalidTokens(); len(invalid) > 0 {
		if err := m.userRepo.RemoveDeviceTokens(ctx, user.ID, invalid); err != nil {
			m.logger.Warnf("%s: failed to remove %d invalid tokens of user %d: %v", op, len(invalid), user.ID, err)
		} else {
			m.metrics.TokensRemoved.Add(float64(len(invalid)))
		}
	}

	// Ни одной успешной доставки — окно не продвигается, кандидаты будут
	// рассмотрены повторно на следующем запуске.
	if res.Succeeded == 0 {
		m.logger.Warnf("%s: all %d sends failed for search %d, window not advanced", op, res.Failed, search.ID)
		return nil
	}

	return m.finalizeDispatch(ctx, user, search, now, len(matched), res)
}

// findMatches запрашивает кандидатов окна у хранилища по самому селективному
// предикату и дофильтровывает их в памяти всеми остальными.
func (m *MatcherUseCase) findMatches(ctx context.Context, search *domain.SavedSearch, now time.Time) ([]domain.Product, error) {
	qctx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	query := &NewProductsQuery{
		Since: search.LastNotifiedAt,
		Until: now,
	}
	if len(search.CategoryIDs) > 0 {
		query.CategoryIDs = search.CategoryIDs
	} else {
		query.Brands = search.Brands
	}

	candidates, err := m.productRepo.FindNewInWindow(qctx, query)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Product, 0, len(candidates))
	for i := range candidates {
		candidates[i].Normalize()
		if search.Matches(&candidates[i]) {
			matched = append(matched, candidates[i])
		}
	}

	return matched, nil
}

// finalizeDispatch атомарно продвигает lastNotifiedAt и пишет запись аудита.
func (m *MatcherUseCase) finalizeDispatch(
	ctx context.Context,
	user *domain.User,
	search *domain.SavedSearch,
	now time.Time,
	matchedCount int,
	res *SendPushRes,
) error {
	const op = "MatcherUseCase.finalizeDispatch"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, m.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	if err = m.savedSearchRepo.AdvanceLastNotified(ctx, search.ID, now); err != nil {
		return e.Wrap(op, err)
	}

	entry := NewDispatchLogEntry(search.ID, user.ID, matchedCount, res.Succeeded, res.Failed, now)
	if err = m.dispatchLogRepo.Create(ctx, entry); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// composePush собирает уведомление для всех устройств пользователя.
// Схема data-полезной нагрузки стабильна — её разбирает роутер уведомлений
// мобильного клиента.
func (m *MatcherUseCase) composePush(user *domain.User, search *domain.SavedSearch, count int) *SendPushReq {
	filters, err := json.Marshal(searchFilters(search))
	if err != nil {
		m.logger.Warnf("MatcherUseCase.composePush: filters marshal failed for search %d: %v", search.ID, err)
		filters = []byte("{}")
	}

	return &SendPushReq{
		Tokens: user.DeviceTokens,
		Title:  fmt.Sprintf("Новые объявления: %d", count),
		Body:   fmt.Sprintf("По вашему поиску «%s» появились новые товары", search.DisplayName()),
		Data: map[string]string{
			"type":          "saved_search",
			"searchId":      fmt.Sprintf("%d", search.ID),
			"searchName":    search.DisplayName(),
			"newItemsCount": fmt.Sprintf("%d", count),
			"filters":       string(filters),
			"query":         search.Query,
		},
		Badge: count,
	}
}

func searchFilters(s *domain.SavedSearch) map[string]any {
	filters := make(map[string]any)
	if len(s.CategoryIDs) > 0 {
		filters["categoryIds"] = s.CategoryIDs
	}
	if len(s.Brands) > 0 {
		filters["brands"] = s.Brands
	}
	if len(s.Colors) > 0 {
		filters["colors"] = s.Colors
	}
	if len(s.Materials) > 0 {
		filters["materials"] = s.Materials
	}
	if len(s.Sizes) > 0 {
		filters["sizes"] = s.Sizes
	}
	if s.Condition != "" {
		filters["condition"] = s.Condition
	}
	if s.PriceMin != nil {
		filters["priceMin"] = s.PriceMin
	}
	if s.PriceMax != nil {
		filters["priceMax"] = s.PriceMax
	}

	return filters
}
