package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
)

var matcherNow = time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)

func testMatcherCfg() *cfg.MatcherCfg {
	return &cfg.MatcherCfg{
		Interval:     15 * time.Minute,
		RunTimeout:   time.Minute,
		// Один воркер: семафор сериализует пользователей, и мокам не
		// нужна внутренняя синхронизация.
		Concurrency:  1,
		QueryTimeout: time.Second,
		SendTimeout:  time.Second,
	}
}

func testSavedSearch() domain.SavedSearch {
	priceMax := decimal.NewFromInt(100)

	return domain.SavedSearch{
		ID:             7,
		UserID:         1,
		Name:           "Кроссовки Nike",
		Query:          "nike",
		Brands:         []string{"Nike"},
		PriceMax:       &priceMax,
		NotifyNewItems: true,
		LastNotifiedAt: matcherNow.Add(-time.Hour),
	}
}

type matcherFixture struct {
	uc              *MatcherUseCase
	userRepo        *mockUserRepo
	savedSearchRepo *mockSavedSearchRepo
	productRepo     *mockProductRepo
	dispatchLogRepo *mockDispatchLogRepo
	push            *mockPush
	pool            *fakePool
}

func newMatcherFixture(t *testing.T) *matcherFixture {
	t.Helper()

	f := &matcherFixture{
		userRepo: &mockUserRepo{
			users: []domain.User{{ID: 1, DeviceTokens: []string{"tok-a", "tok-b"}}},
		},
		savedSearchRepo: &mockSavedSearchRepo{searches: []domain.SavedSearch{testSavedSearch()}},
		productRepo:     &mockProductRepo{windowed: []domain.Product{*testProduct()}},
		dispatchLogRepo: &mockDispatchLogRepo{},
		push: &mockPush{res: &SendPushRes{
			Results: []TokenResult{
				{Token: "tok-a", OK: true},
				{Token: "tok-b", OK: true},
			},
			Succeeded: 2,
		}},
		pool: &fakePool{},
	}

	f.uc = NewMatcherUC(
		f.userRepo,
		f.savedSearchRepo,
		f.productRepo,
		f.dispatchLogRepo,
		f.push,
		f.pool,
		testMatcherCfg(),
		testMetrics(),
		nopLogger{},
	)
	f.uc.now = func() time.Time { return matcherNow }

	return f
}

func TestMatcher_SendsNotificationAndAdvancesWindow(t *testing.T) {
	f := newMatcherFixture(t)

	require.NoError(t, f.uc.Run(context.Background()))

	// Хранилище запрошено окном (lastNotifiedAt, now] с брендовым предикатом.
	require.NotNil(t, f.productRepo.lastQuery)
	assert.Equal(t, matcherNow.Add(-time.Hour), f.productRepo.lastQuery.Since)
	assert.Equal(t, matcherNow, f.productRepo.lastQuery.Until)
	assert.Equal(t, []string{"Nike"}, f.productRepo.lastQuery.Brands)

	require.Len(t, f.push.reqs, 1)
	req := f.push.reqs[0]
	assert.Equal(t, []string{"tok-a", "tok-b"}, req.Tokens)
	assert.Equal(t, "Новые объявления: 1", req.Title)
	assert.Contains(t, req.Body, "Кроссовки Nike")
	assert.Equal(t, "saved_search", req.Data["type"])
	assert.Equal(t, "7", req.Data["searchId"])
	assert.Equal(t, "1", req.Data["newItemsCount"])
	assert.Equal(t, "nike", req.Data["query"])
	assert.Contains(t, req.Data["filters"], "Nike")

	// Окно продвинуто и аудит записан в одной транзакции.
	assert.Equal(t, matcherNow, f.savedSearchRepo.advanced[7])
	require.Len(t, f.dispatchLogRepo.entries, 1)
	entry := f.dispatchLogRepo.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(7), entry.SearchID)
	assert.Equal(t, int64(1), entry.UserID)
	assert.Equal(t, 1, entry.NewItemsCount)
	assert.Equal(t, 2, entry.Succeeded)
	require.NotNil(t, f.pool.tx)
	assert.True(t, f.pool.tx.committed)
}

func TestMatcher_NoCandidatesNoPush(t *testing.T) {
	f := newMatcherFixture(t)
	f.productRepo.windowed = nil

	require.NoError(t, f.uc.Run(context.Background()))

	assert.Empty(t, f.push.reqs)
	assert.Empty(t, f.savedSearchRepo.advanced)
	assert.Empty(t, f.dispatchLogRepo.entries)
}

func TestMatcher_CandidateFilteredOutInMemory(t *testing.T) {
	f := newMatcherFixture(t)

	// Кандидат прошёл предикат хранилища, но дороже PriceMax.
	expensive := *testProduct()
	expensive.Price = decimal.NewFromInt(300)
	f.productRepo.windowed = []domain.Product{expensive}

	require.NoError(t, f.uc.Run(context.Background()))

	assert.Empty(t, f.push.reqs)
	assert.Empty(t, f.savedSearchRepo.advanced)
}

func TestMatcher_CategoryPredicatePreferred(t *testing.T) {
	f := newMatcherFixture(t)

	s := testSavedSearch()
	s.CategoryIDs = []int64{7}
	f.savedSearchRepo.searches = []domain.SavedSearch{s}

	require.NoError(t, f.uc.Run(context.Background()))

	require.NotNil(t, f.productRepo.lastQuery)
	assert.Equal(t, []int64{7}, f.productRepo.lastQuery.CategoryIDs)
	assert.Empty(t, f.productRepo.lastQuery.Brands)
}

func TestMatcher_InvalidTokensRemoved(t *testing.T) {
	f := newMatcherFixture(t)
	f.push.res = &SendPushRes{
		Results: []TokenResult{
			{Token: "tok-a", OK: true},
			{Token: "tok-b", Invalid: true, Err: assert.AnError},
		},
		Succeeded: 1,
		Failed:    1,
	}

	require.NoError(t, f.uc.Run(context.Background()))

	// Мёртвый токен удалён, окно продвинуто: одна доставка состоялась.
	assert.Equal(t, []string{"tok-b"}, f.userRepo.removed[1])
	assert.Equal(t, matcherNow, f.savedSearchRepo.advanced[7])
}

func TestMatcher_TransientFailureKeepsTokensAndWindow(t *testing.T) {
	f := newMatcherFixture(t)
	f.push.res = &SendPushRes{
		Results: []TokenResult{
			{Token: "tok-a", Err: assert.AnError},
			{Token: "tok-b", Err: assert.AnError},
		},
		Failed: 2,
	}

	require.NoError(t, f.uc.Run(context.Background()))

	// Временные ошибки: токены на месте, окно не продвинуто —
	// кандидаты будут рассмотрены на следующем запуске.
	assert.Empty(t, f.userRepo.removed)
	assert.Empty(t, f.savedSearchRepo.advanced)
	assert.Empty(t, f.dispatchLogRepo.entries)
}

func TestMatcher_PushErrorIsolatedPerSearch(t *testing.T) {
	f := newMatcherFixture(t)
	f.push.err = assert.AnError

	other := testSavedSearch()
	other.ID = 8
	f.savedSearchRepo.searches = []domain.SavedSearch{testSavedSearch(), other}

	// Ошибка одного поиска не прерывает запуск.
	require.NoError(t, f.uc.Run(context.Background()))
	assert.Len(t, f.push.reqs, 2)
}

func TestMatcher_FinalizeErrorRollsBack(t *testing.T) {
	f := newMatcherFixture(t)
	f.dispatchLogRepo.createErr = assert.AnError

	require.NoError(t, f.uc.Run(context.Background()))

	require.NotNil(t, f.pool.tx)
	assert.False(t, f.pool.tx.committed)
	assert.True(t, f.pool.tx.rolledBack)
}

func TestMatcher_MultipleUsersProcessed(t *testing.T) {
	f := newMatcherFixture(t)
	f.userRepo.users = []domain.User{
		{ID: 1, DeviceTokens: []string{"tok-a"}},
		{ID: 2, DeviceTokens: []string{"tok-b"}},
		{ID: 3, DeviceTokens: []string{"tok-c"}},
	}

	require.NoError(t, f.uc.Run(context.Background()))

	assert.Len(t, f.push.reqs, 3)
}
