package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
)

// --- Mocks ---

type mockProductRepo struct {
	product    *domain.Product
	getErr     error
	windowed   []domain.Product
	windowErr  error
	lastQuery  *NewProductsQuery
	geohashes  map[int64]string
	geohashErr error
}

func (m *mockProductRepo) GetByID(_ context.Context, _ int64) (*domain.Product, error) {
	return m.product, m.getErr
}

func (m *mockProductRepo) FindNewInWindow(_ context.Context, q *NewProductsQuery) ([]domain.Product, error) {
	m.lastQuery = q
	return m.windowed, m.windowErr
}

func (m *mockProductRepo) SetGeohash(_ context.Context, id int64, gh string) error {
	if m.geohashErr != nil {
		return m.geohashErr
	}
	if m.geohashes == nil {
		m.geohashes = make(map[int64]string)
	}
	m.geohashes[id] = gh
	return nil
}

type mockSearchIndexRepo struct {
	upserted  []*domain.SearchDocument
	upsertErr error
	deleted   []int64
	deleteErr error
}

func (m *mockSearchIndexRepo) Upsert(_ context.Context, doc *domain.SearchDocument) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, doc)
	return nil
}

func (m *mockSearchIndexRepo) Delete(_ context.Context, productID int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, productID)
	return nil
}

type mockCacheRepo struct {
	docs    map[int64]*domain.SearchDocument
	getErr  error
	setErr  error
	deleted []int64
}

func (m *mockCacheRepo) GetDocument(_ context.Context, productID int64) (*domain.SearchDocument, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.docs[productID], nil
}

func (m *mockCacheRepo) SetDocument(_ context.Context, doc *domain.SearchDocument) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.docs == nil {
		m.docs = make(map[int64]*domain.SearchDocument)
	}
	m.docs[doc.ProductID] = doc
	return nil
}

func (m *mockCacheRepo) DeleteDocument(_ context.Context, productID int64) error {
	m.deleted = append(m.deleted, productID)
	return nil
}

type mockSavedSearchRepo struct {
	searches    []domain.SavedSearch
	listErr     error
	advanced    map[int64]time.Time
	advancedErr error
}

func (m *mockSavedSearchRepo) ListForNotify(_ context.Context, _ int64) ([]domain.SavedSearch, error) {
	return m.searches, m.listErr
}

func (m *mockSavedSearchRepo) AdvanceLastNotified(_ context.Context, searchID int64, to time.Time) error {
	if m.advancedErr != nil {
		return m.advancedErr
	}
	if m.advanced == nil {
		m.advanced = make(map[int64]time.Time)
	}
	m.advanced[searchID] = to
	return nil
}

type mockUserRepo struct {
	users      []domain.User
	listErr    error
	removed    map[int64][]string
	removedErr error
}

func (m *mockUserRepo) ListWithDeviceTokens(_ context.Context) ([]domain.User, error) {
	return m.users, m.listErr
}

func (m *mockUserRepo) RemoveDeviceTokens(_ context.Context, userID int64, tokens []string) error {
	if m.removedErr != nil {
		return m.removedErr
	}
	if m.removed == nil {
		m.removed = make(map[int64][]string)
	}
	m.removed[userID] = append(m.removed[userID], tokens...)
	return nil
}

type mockDispatchLogRepo struct {
	entries   []*DispatchLogEntry
	createErr error
}

func (m *mockDispatchLogRepo) Create(_ context.Context, entry *DispatchLogEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockEmbeddingRepo struct {
	existing    *domain.Embedding
	getErr      error
	upserted    []*domain.Embedding
	upsertErr   error
	merged      map[int64]domain.Payload
	mergeErr    error
	deactivated []int64
	activated   []int64
	activeErr   error
}

func (m *mockEmbeddingRepo) Get(_ context.Context, _ int64) (*domain.Embedding, error) {
	return m.existing, m.getErr
}

func (m *mockEmbeddingRepo) Upsert(_ context.Context, emb *domain.Embedding) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, emb)
	return nil
}

func (m *mockEmbeddingRepo) MergePayload(_ context.Context, productID int64, payload domain.Payload) error {
	if m.mergeErr != nil {
		return m.mergeErr
	}
	if m.merged == nil {
		m.merged = make(map[int64]domain.Payload)
	}
	m.merged[productID] = payload
	return nil
}

func (m *mockEmbeddingRepo) SetActive(_ context.Context, productID int64, active bool) error {
	if m.activeErr != nil {
		return m.activeErr
	}
	if active {
		m.activated = append(m.activated, productID)
	} else {
		m.deactivated = append(m.deactivated, productID)
	}
	return nil
}

type mockImageSource struct {
	data []byte
	err  error
}

func (m *mockImageSource) FetchImage(_ context.Context, _ string) ([]byte, error) {
	return m.data, m.err
}

type mockInference struct {
	res *EmbedImageRes
	err error
}

func (m *mockInference) EmbedImage(_ context.Context, _ *EmbedImageReq) (*EmbedImageRes, error) {
	return m.res, m.err
}

type mockPush struct {
	reqs []*SendPushReq
	res  *SendPushRes
	err  error
}

func (m *mockPush) Send(_ context.Context, req *SendPushReq) (*SendPushRes, error) {
	m.reqs = append(m.reqs, req)
	return m.res, m.err
}

// syncDebouncer исполняет запланированную функцию немедленно, без таймеров.
type syncDebouncer struct {
	scheduled []string
	cancelled []string
}

func (d *syncDebouncer) Schedule(key string, _ time.Duration, fn func()) {
	d.scheduled = append(d.scheduled, key)
	fn()
}

func (d *syncDebouncer) Cancel(key string) {
	d.cancelled = append(d.cancelled, key)
}

// fakeTx подменяет только Commit/Rollback; остальные методы pgx.Tx в
// юзкейс-тестах не вызываются.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

type fakePool struct {
	tx       *fakeTx
	beginErr error
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.BeginTx(ctx, pgx.TxOptions{})
}

func (p *fakePool) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		p.tx = &fakeTx{}
	}
	return p.tx, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}
