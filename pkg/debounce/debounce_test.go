package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(logger.NewSlogLogger())
}

func TestScheduleRunsOnce(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var calls atomic.Int32
	s.Schedule("k", 30*time.Millisecond, func() { calls.Add(1) })

	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Zero(t, s.Pending())
}

func TestScheduleLastWriterWins(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var (
		gotA atomic.Bool
		gotB atomic.Bool
	)

	// Повторная регистрация по тому же ключу отменяет первую функцию.
	s.Schedule("k", 100*time.Millisecond, func() { gotA.Store(true) })
	time.Sleep(20 * time.Millisecond)
	s.Schedule("k", 100*time.Millisecond, func() { gotB.Store(true) })

	time.Sleep(250 * time.Millisecond)
	assert.False(t, gotA.Load(), "first scheduled func must never run")
	assert.True(t, gotB.Load(), "last scheduled func must run")
}

func TestScheduleIndependentKeys(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var calls atomic.Int32
	s.Schedule("index:1", 30*time.Millisecond, func() { calls.Add(1) })
	s.Schedule("geohash:1", 30*time.Millisecond, func() { calls.Add(1) })

	require.Equal(t, 2, s.Pending())
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCancel(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var called atomic.Bool
	s.Schedule("k", 30*time.Millisecond, func() { called.Store(true) })
	s.Cancel("k")

	time.Sleep(100 * time.Millisecond)
	assert.False(t, called.Load())
	assert.Zero(t, s.Pending())
}

func TestPanicDoesNotWedgeKey(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	s.Schedule("k", 10*time.Millisecond, func() { panic("downstream write failed") })
	time.Sleep(100 * time.Millisecond)

	// Ключ освобождён несмотря на панику — следующая регистрация работает.
	require.Zero(t, s.Pending())

	var called atomic.Bool
	s.Schedule("k", 10*time.Millisecond, func() { called.Store(true) })
	time.Sleep(100 * time.Millisecond)
	assert.True(t, called.Load())
}

func TestStopCancelsAll(t *testing.T) {
	s := newTestScheduler()

	var calls atomic.Int32
	for _, key := range []string{"a", "b", "c"} {
		s.Schedule(key, 50*time.Millisecond, func() { calls.Add(1) })
	}

	s.Stop()
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Zero(t, s.Pending())
}

func TestConcurrentScheduleSameKey(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var (
		calls atomic.Int32
		wg    sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Schedule("k", 30*time.Millisecond, func() { calls.Add(1) })
		}()
	}
	wg.Wait()

	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load(), "burst of schedules must coalesce into one call")
}
