package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// MatcherWorker запускает матчер сохранённых поисков по расписанию.
// Пропущенный или оборванный запуск не требует компенсации: матчинг
// оконный и идемпотентный, следующий тик рассмотрит тех же кандидатов.
type MatcherWorker struct {
	matcher usecase.MatcherUC
	cfg     *cfg.MatcherCfg
	logger  logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewMatcherWorker(matcher usecase.MatcherUC, cfg *cfg.MatcherCfg, logger logger.Logger) *MatcherWorker {
	return &MatcherWorker{
		matcher: matcher,
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

func (w *MatcherWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *MatcherWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *MatcherWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *MatcherWorker) runOnce(ctx context.Context) {
	const op = "scheduler.MatcherWorker.runOnce"

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.RunTimeout)
	defer cancel()

	started := time.Now()
	if err := w.matcher.Run(runCtx); err != nil {
		w.logger.Warnf("%s: matcher run failed: %v", op, err)
		return
	}

	w.logger.Infof("%s: matcher run finished in %v", op, time.Since(started))
}
