package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	config "github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/delivery/ops"
	fcmInfra "github.com/sellora-tech/catalog-pipeline/internal/infrastructure/fcm"
	"github.com/sellora-tech/catalog-pipeline/internal/infrastructure/images"
	"github.com/sellora-tech/catalog-pipeline/internal/infrastructure/inference"
	kafkaInfra "github.com/sellora-tech/catalog-pipeline/internal/infrastructure/kafka"
	"github.com/sellora-tech/catalog-pipeline/internal/infrastructure/scheduler"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
	s3Repo "github.com/sellora-tech/catalog-pipeline/internal/repository/minio"
	"github.com/sellora-tech/catalog-pipeline/internal/repository/pgdb"
	pgdbConv "github.com/sellora-tech/catalog-pipeline/internal/repository/pgdb/converter"
	qdrantRepo "github.com/sellora-tech/catalog-pipeline/internal/repository/qdrant"
	redisRepo "github.com/sellora-tech/catalog-pipeline/internal/repository/redis"
	redisConv "github.com/sellora-tech/catalog-pipeline/internal/repository/redis/converter"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/clients"
	"github.com/sellora-tech/catalog-pipeline/pkg/closer"
	"github.com/sellora-tech/catalog-pipeline/pkg/debounce"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
	"github.com/sellora-tech/catalog-pipeline/pkg/postgres"
)

// App собирает пайплайн целиком: хранилища, инфраструктуру, юзкейсы,
// консьюмер событий, планировщик матчера и служебный HTTP-сервер.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	consumer      *kafkaInfra.Consumer
	matcherWorker *scheduler.MatcherWorker
	httpSrv       *ops.Server
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	const op = "app.NewApp"

	cl := closer.NewCloser()
	ctx := context.Background()

	// PostgreSQL: товары, документы индекса, сохранённые поиски, аудит.
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	cl.Add(func(_ context.Context) error {
		db.Close()
		return nil
	})

	if err := db.RunMigrations(log); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Redis: кэш последних записанных документов индекса.
	redisClient := clients.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisClient.Ping(pingCtx)
	cancel()
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	cl.Add(func(_ context.Context) error {
		return redisClient.Close()
	})

	// MinIO: чтение изображений товаров.
	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = clients.EnsureBucket(bucketCtx, minioClient, cfg.Minio.BucketName)
	cancel()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Qdrant: векторы изображений.
	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	collCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = clients.EnsureCollection(collCtx, qdrantClient)
	cancel()
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	cl.Add(func(_ context.Context) error {
		return qdrantClient.Client.Close()
	})

	// FCM: доставка push-уведомлений.
	fcmClient, err := clients.NewMessagingClient(ctx, cfg.Fcm)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Репозитории.
	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.NewProductConverter())
	indexRepo := pgdb.NewSearchIndexRepo(db.Pool, pgdbConv.NewSearchDocumentConverter())
	savedSearchRepo := pgdb.NewSavedSearchRepo(db.Pool, pgdbConv.NewSavedSearchConverter())
	userRepo := pgdb.NewUserRepo(db.Pool)
	dispatchLogRepo := pgdb.NewDispatchLogRepo(db.Pool)
	embeddingRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)
	cacheRepo := redisRepo.NewCacheRepo(redisClient, redisConv.NewSearchDocumentConverter(), cfg.Redis, log)
	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)

	// Инфраструктура.
	inferenceClient := inference.NewClient(cfg.Inference, log)
	imageSource := images.NewSource(imageRepo, cfg.Minio, cfg.Inference, log)
	push := fcmInfra.NewInfra(fcmClient, log)

	deb := debounce.NewScheduler(log)
	cl.Add(func(_ context.Context) error {
		deb.Stop()
		return nil
	})

	// Юзкейсы.
	indexerUC := usecase.NewIndexerUC(productRepo, indexRepo, cacheRepo, deb, cfg.Indexer, m, log)
	embeddingUC := usecase.NewEmbeddingUC(embeddingRepo, imageSource, inferenceClient, cfg.Inference, m, log)
	matcherUC := usecase.NewMatcherUC(
		userRepo, savedSearchRepo, productRepo, dispatchLogRepo,
		push, db.Pool, cfg.Matcher, m, log,
	)

	consumer := kafkaInfra.NewConsumer(kafkaInfra.NewReader(cfg.Kafka), indexerUC, embeddingUC, cfg.Kafka, m, log)
	matcherWorker := scheduler.NewMatcherWorker(matcherUC, cfg.Matcher, log)

	// Служебный HTTP.
	r := chi.NewRouter()
	router := ops.NewRouter(r, log)
	router.Init(registry, map[string]ops.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
	httpSrv := ops.NewServer(r, cfg.Http)

	return &App{
		cfg:           cfg,
		logger:        log,
		closer:        cl,
		consumer:      consumer,
		matcherWorker: matcherWorker,
		httpSrv:       httpSrv,
	}, nil
}

// Run запускает пайплайн и блокируется до сигнала завершения или фатальной
// ошибки служебного HTTP-сервера.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.consumer.Start(ctx)
	a.matcherWorker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("ops HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "ops HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "ops HTTP server shutdown error")
	}

	// Остановка потребителей до освобождения соединений.
	a.consumer.Stop()
	a.matcherWorker.Stop()
	cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "resource shutdown error")
	}

	a.logger.Infof("pipeline stopped")

	return appErr
}
