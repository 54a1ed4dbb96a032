package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/domain"
	"github.com/sellora-tech/catalog-pipeline/internal/metrics"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/jitter"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// MessageReader — читающая сторона топика. *kafka.Reader реализует его;
// в тестах подставляется фейк.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader собирает групповой reader топика событий товаров.
func NewReader(cfg *cfg.KafkaCfg) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // синхронные коммиты
	})
}

// Consumer читает события изменения товаров и раздаёт их обработчикам.
// Проекция индекса выполняется синхронно в порядке сообщений партиции —
// это сохраняет порядок событий одного товара. Генерация эмбеддингов
// уходит в ограниченный пул фоновых задач: инференс медленный и не обязан
// тормозить индексацию.
type Consumer struct {
	reader  MessageReader
	indexer usecase.IndexerUC
	embed   usecase.EmbeddingUC
	cfg     *cfg.KafkaCfg
	metrics *metrics.Metrics
	logger  logger.Logger

	jobs chan *domain.ProductEvent
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewConsumer(
	reader MessageReader,
	indexer usecase.IndexerUC,
	embed usecase.EmbeddingUC,
	cfg *cfg.KafkaCfg,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *Consumer {
	return &Consumer{
		reader:  reader,
		indexer: indexer,
		embed:   embed,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		jobs:    make(chan *domain.ProductEvent, cfg.EmbedQueueSize),
		stop:    make(chan struct{}),
	}
}

// Start запускает чтение топика и пул воркеров эмбеддингов.
func (c *Consumer) Start(ctx context.Context) {
	for i := 0; i < c.cfg.EmbedWorkers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.embedWorker(ctx)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Stop останавливает консьюмер и дожидается рабочих горутин.
func (c *Consumer) Stop() {
	close(c.stop)
	if err := c.reader.Close(); err != nil {
		c.logger.Warnf("kafka reader close failed: %v", err)
	}
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context) {
	const op = "kafka.Consumer.run"

	defer close(c.jobs)

	for attempt := 0; ; {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			// ErrClosedPipe отдаёт закрытый в Stop() reader.
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) ||
				errors.Is(err, io.ErrClosedPipe) {
				return
			}

			sleepTime := jitter.ExponentialBackoff(time.Second, 30*time.Second, attempt, jitter.DefaultJitter)
			attempt++
			c.logger.Warnf("%s: fetch failed, retrying in %v: %v", op, sleepTime, err)
			select {
			case <-time.After(sleepTime):
			case <-ctx.Done():
				return
			}
			continue
		}
		attempt = 0

		c.handleMessage(ctx, &msg)

		// Коммит и при ошибке обработки: повторная доставка того же
		// сообщения не исправит битый payload, а партиция не должна
		// застрять на нём. Сбои записи компенсирует следующее событие
		// товара либо полная переиндексация.
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warnf("%s: commit failed: %v", op, err)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg *kafka.Message) {
	const op = "kafka.Consumer.handleMessage"

	event, err := decodeProductEvent(msg.Value)
	if err != nil {
		c.metrics.EventsFailed.Inc()
		c.logger.Warnf("%s: malformed event at offset %d: %v", op, msg.Offset, err)
		return
	}

	c.metrics.EventsConsumed.WithLabelValues(string(event.Type)).Inc()

	handleCtx, cancel := context.WithTimeout(ctx, c.cfg.HandleTimeout)
	defer cancel()

	if err := c.indexer.HandleProductEvent(handleCtx, event); err != nil {
		c.metrics.EventsFailed.Inc()
		c.logger.Warnf("%s: index projection failed for product %d: %v", op, event.ProductID, err)
	}

	// Полная очередь не блокирует чтение партиции: событие пропускается,
	// вектор догонит на следующем событии товара.
	select {
	case c.jobs <- event:
	default:
		c.logger.Warnf("%s: embedding queue full, skipping product %d", op, event.ProductID)
	}
}

func (c *Consumer) embedWorker(ctx context.Context) {
	for event := range c.jobs {
		handleCtx, cancel := context.WithTimeout(ctx, c.cfg.HandleTimeout)
		// Ошибки проглатываются внутри: генерация строго best-effort.
		_ = c.embed.HandleProductEvent(handleCtx, event)
		cancel()
	}
}
