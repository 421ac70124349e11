package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunAll(t *testing.T) {
	t.Parallel()

	p := New(3, 0)
	var (
		done    atomic.Int64
		running atomic.Int64
		peak    atomic.Int64
	)

	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Run: func(context.Context) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			done.Add(1)
		}}
	}

	skipped := p.Run(context.Background(), jobs, nil)
	assert.Empty(t, skipped)
	assert.Equal(t, int64(20), done.Load())
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestPool_StopDiscardsPending(t *testing.T) {
	t.Parallel()

	p := New(1, 0)
	var (
		stopped atomic.Bool
		ran     []int
		mu      sync.Mutex
	)

	jobs := make([]Job, 5)
	for i := range jobs {
		jobs[i] = Job{Run: func(ctx context.Context) {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
			if i == 1 {
				stopped.Store(true)
			}
			assert.NoError(t, ctx.Err())
		}}
	}

	skipped := p.Run(context.Background(), jobs, stopped.Load)
	assert.Equal(t, []int{0, 1}, ran)
	assert.Equal(t, []int{2, 3, 4}, skipped)
}

func TestPool_StopWhileWaitingForMemory(t *testing.T) {
	t.Parallel()

	// Лимит 1 МБ: задачи по 1 МБ выполняются строго по одной
	p := New(2, 1)
	var (
		stopped atomic.Bool
		started atomic.Int64
	)

	jobs := make([]Job, 2)
	for i := range jobs {
		jobs[i] = Job{Size: 1 << 20, Run: func(context.Context) {
			started.Add(1)
			stopped.Store(true)
			time.Sleep(20 * time.Millisecond)
		}}
	}

	skipped := p.Run(context.Background(), jobs, stopped.Load)
	assert.Equal(t, int64(1), started.Load())
	assert.Len(t, skipped, 1)
}

func TestPool_InFlightSurvivesCancel(t *testing.T) {
	t.Parallel()

	p := New(2, 0)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var finished atomic.Bool
	jobs := []Job{{Run: func(jobCtx context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(jobCtx.Err() == nil)
	}}}

	go func() {
		<-started
		cancel()
	}()

	skipped := p.Run(ctx, jobs, nil)
	assert.Empty(t, skipped)
	assert.True(t, finished.Load())

	// После отмены ничего не запускается
	skipped = p.Run(ctx, []Job{{Run: func(context.Context) { t.Error("must not run") }}}, nil)
	assert.Equal(t, []int{0}, skipped)
}

func TestPool_ForEach(t *testing.T) {
	t.Parallel()

	p := New(4, 0)
	var sum atomic.Int64
	require.NoError(t, p.ForEach(context.Background(), 10, func(_ context.Context, i int) error {
		sum.Add(int64(i))
		return nil
	}))
	assert.Equal(t, int64(45), sum.Load())

	boom := errors.New("boom")
	err := p.ForEach(context.Background(), 10, func(_ context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMemoryLimiter(t *testing.T) {
	t.Parallel()

	disabled := NewMemoryLimiter(0)
	assert.False(t, disabled.IsEnabled())
	release, err := disabled.Acquire(context.Background(), 1<<40)
	require.NoError(t, err)
	release()

	ml := NewMemoryLimiter(1)
	require.True(t, ml.IsEnabled())

	// Файл больше лимита всё равно получает резерв
	release, err = ml.Acquire(context.Background(), 10<<20)
	require.NoError(t, err)
	assert.Equal(t, ml.MaxMemory(), ml.CurrentUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ml.Acquire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Equal(t, int64(0), ml.CurrentUsage())

	release, err = ml.Acquire(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ml.CurrentUsage())
	release()
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
		{-2048, "-2.0 KB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}

	s := Stats{InputBytes: 1000, OutputBytes: 250}
	assert.Equal(t, int64(750), s.SavedBytes())
	assert.InDelta(t, 75.0, s.SavedPercent(), 0.001)
}
