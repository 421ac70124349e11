// Package worker содержит пул воркеров для параллельной обработки.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job - одна задача пула.
type Job struct {
	// Size - оценка размера входных данных (для MemoryLimiter).
	Size int64

	// Run выполняет задачу. Контекст не отменяется: начатая задача
	// всегда выполняется до конца.
	Run func(ctx context.Context)
}

// Pool управляет пулом воркеров.
type Pool struct {
	workers       int
	memoryLimiter *MemoryLimiter
}

// New создаёт пул на workers горутин (минимум 1).
// maxMemoryMB ограничивает суммарный размер одновременно обрабатываемых файлов (0 = без ограничения).
func New(workers, maxMemoryMB int) *Pool {
	return &Pool{
		workers:       max(1, workers),
		memoryLimiter: NewMemoryLimiter(maxMemoryMB),
	}
}

// Workers возвращает количество воркеров.
func (p *Pool) Workers() int {
	return p.workers
}

// Run выполняет jobs не более чем в Workers() горутинах и ждёт их завершения.
// Перед запуском каждой задачи (и после ожидания памяти) проверяются ctx
// и stop: после отмены новые задачи не запускаются. Возвращает индексы задач, которые не были запущены.
func (p *Pool) Run(ctx context.Context, jobs []Job, stop func() bool) []int {
	canceled := func() bool {
		return ctx.Err() != nil || (stop != nil && stop())
	}

	// Начатые задачи не должны прерываться отменой
	detached := context.WithoutCancel(ctx)

	skipped := make([]bool, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, job := range jobs {
		if canceled() {
			skipped[i] = true
			continue
		}
		g.Go(func() error {
			// Пока задача ждала свободного воркера, могла прийти отмена
			if canceled() {
				skipped[i] = true
				return nil
			}

			release, err := p.memoryLimiter.Acquire(ctx, job.Size)
			if err != nil {
				skipped[i] = true
				return nil
			}
			defer release()

			// Отмена могла прийти, пока задача ждала памяти
			if canceled() {
				skipped[i] = true
				return nil
			}

			job.Run(detached)
			return nil
		})
	}
	_ = g.Wait()

	var result []int
	for i, s := range skipped {
		if s {
			result = append(result, i)
		}
	}
	return result
}

// ForEach вызывает fn для каждого индекса [0, n) не более чем в Workers() горутинах.
// Первая ошибка отменяет контекст остальных вызовов и возвращается.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

/*
Возможные расширения:
- Приоритет аудио над изображениями (короче по времени)
- Retry для файлов, упавших по таймауту
*/
