// Package debounce коалесцирует всплески событий по одному логическому ключу
// в одну отложенную операцию. Состояние живёт в памяти процесса: это
// оптимизация записи, а не механизм exactly-once — при горизонтальном
// масштабировании каждый инстанс дебаунсит независимо.
package debounce

import (
	"sync"
	"time"

	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler хранит не более одного взведённого таймера на ключ.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]pendingTimer
	gen     uint64
	logger  logger.Logger
}

func NewScheduler(logger logger.Logger) *Scheduler {
	return &Scheduler{
		pending: make(map[string]pendingTimer),
		logger:  logger,
	}
}

// Schedule взводит таймер для ключа key: через delay бездействия по этому
// ключу fn выполняется ровно один раз. Повторный вызов для того же ключа
// отменяет предыдущий таймер — выполняется только последняя
// зарегистрированная функция.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}

	// Номер поколения отличает сработавший таймер от пришедшего на смену:
	// просроченный таймер, не успевший захватить мьютекс до перезаписи
	// ключа, не должен ни выполнить устаревшую функцию, ни снять новый таймер.
	s.gen++
	gen := s.gen

	s.pending[key] = pendingTimer{
		timer: time.AfterFunc(delay, func() {
			s.fire(key, gen, fn)
		}),
		gen: gen,
	}
}

// Cancel снимает взведённый таймер без выполнения его функции.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending возвращает число взведённых таймеров.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Stop снимает все взведённые таймеры. Используется при остановке сервиса:
// несработавшие записи будут восстановлены повторной доставкой событий.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, prev := range s.pending {
		prev.timer.Stop()
		delete(s.pending, key)
	}
}

// fire выполняет fn, предварительно удалив ключ из ожидающих.
func (s *Scheduler) fire(key string, gen uint64, fn func()) {
	s.mu.Lock()
	current, ok := s.pending[key]
	if !ok || current.gen != gen {
		// Ключ снят через Cancel или перевзведён более поздним Schedule.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	// Паника внутри fn не должна заклинить будущие обновления ключа.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("debounce: panic in scheduled func for key %q: %v", key, r)
		}
	}()

	fn()
}
