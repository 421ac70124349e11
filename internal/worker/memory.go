package worker

import (
	"context"
	"sync"
)

// memoryFactor - во сколько раз энкодер в среднем превышает размер исходного файла по памяти.
const memoryFactor = 3

// MemoryLimiter ограничивает суммарную оценку памяти одновременно работающих энкодеров.
type MemoryLimiter struct {
	// maxMemoryBytes - максимальное использование памяти в байтах.
	maxMemoryBytes int64

	// mu защищает currentUsage, cond будит ожидающих при освобождении.
	mu   sync.Mutex
	cond *sync.Cond

	// currentUsage - текущее зарезервированное использование памяти.
	currentUsage int64

	// enabled - включено ли ограничение.
	enabled bool
}

// NewMemoryLimiter создаёт новый MemoryLimiter.
// maxMemoryMB - ограничение в мегабайтах (0 = без ограничения).
func NewMemoryLimiter(maxMemoryMB int) *MemoryLimiter {
	if maxMemoryMB <= 0 {
		return &MemoryLimiter{enabled: false}
	}

	ml := &MemoryLimiter{
		maxMemoryBytes: int64(maxMemoryMB) * 1024 * 1024,
		enabled:        true,
	}
	ml.cond = sync.NewCond(&ml.mu)
	return ml
}

// Acquire резервирует память для обработки файла размером fileSize.
// Блокирует выполнение, пока не будет достаточно памяти или не отменён ctx.
// Файл, оценка которого больше лимита, ждёт, пока не освободятся все резервы.
func (ml *MemoryLimiter) Acquire(ctx context.Context, fileSize int64) (release func(), err error) {
	if !ml.enabled {
		return func() {}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	estimated := min(max(fileSize, 0)*memoryFactor, ml.maxMemoryBytes)

	// Будим ожидающих при отмене контекста
	stop := context.AfterFunc(ctx, func() {
		ml.mu.Lock()
		ml.cond.Broadcast()
		ml.mu.Unlock()
	})
	defer stop()

	ml.mu.Lock()
	defer ml.mu.Unlock()

	for ml.currentUsage+estimated > ml.maxMemoryBytes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ml.cond.Wait()
	}
	ml.currentUsage += estimated

	return func() {
		ml.mu.Lock()
		ml.currentUsage -= estimated
		ml.cond.Broadcast()
		ml.mu.Unlock()
	}, nil
}

// IsEnabled возвращает true если ограничение включено.
func (ml *MemoryLimiter) IsEnabled() bool {
	return ml.enabled
}

// CurrentUsage возвращает текущее зарезервированное использование памяти.
func (ml *MemoryLimiter) CurrentUsage() int64 {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.currentUsage
}

// MaxMemory возвращает максимальное ограничение памяти.
func (ml *MemoryLimiter) MaxMemory() int64 {
	return ml.maxMemoryBytes
}
