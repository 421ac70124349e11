// Package watcher предоставляет слежение за директорией медиа.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/scanner"
)

// pendingFile - файл, ожидающий окончания записи.
type pendingFile struct {
	file media.LocalFile
	at   time.Time
}

// Watcher следит за директорией медиа и отправляет пачки новых файлов в канал.
type Watcher struct {
	// dir - директория медиа.
	dir string

	// scanner определяет, подлежит ли файл конвертации.
	scanner *scanner.Scanner

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания перед обработкой файла.
	// Нужно для того, чтобы файл успел полностью записаться.
	debounceTime time.Duration

	// pending - файлы, ожидающие обработки (для debounce).
	pending map[string]pendingFile
	mu      sync.Mutex

	log logger.Logger
}

// New создаёт новый Watcher для cfg.MediaDir.
// Уже сконвертированные файлы никогда не считаются новыми.
func New(cfg *config.Config, log logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		dir:          cfg.MediaDir,
		scanner:      scanner.New(withoutReconvert(cfg)),
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		pending:      make(map[string]pendingFile),
		log:          log,
	}, nil
}

// withoutReconvert возвращает копию cfg с выключенной повторной конвертацией,
// иначе результаты конвертации снова попадали бы в обработку.
func withoutReconvert(cfg *config.Config) *config.Config {
	c := *cfg
	c.BulkReconvert = false
	return &c
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Watch запускает слежение и возвращает канал с пачками готовых файлов.
// Канал закрывается при отмене ctx.
func (w *Watcher) Watch(ctx context.Context) (<-chan []media.LocalFile, error) {
	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("не удалось добавить директорию %s: %w", w.dir, err)
	}

	batches := make(chan []media.LocalFile, 16)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.processEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		w.processPending(ctx, batches)
	}()
	go func() {
		wg.Wait()
		close(batches)
	}()

	return batches, nil
}

// processEvents обрабатывает события от fsnotify.
func (w *Watcher) processEvents(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Переименование в директорию приходит как Create
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// Только файлы верхнего уровня
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			file, ok := w.scanner.Classify(filepath.Base(event.Name))
			if !ok {
				continue
			}

			// Добавляем в pending для debounce
			w.mu.Lock()
			w.pending[event.Name] = pendingFile{file: file, at: time.Now()}
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Err(err).Warn("ошибка watcher")
		}
	}
}

// processPending отправляет файлы из pending после debounce.
func (w *Watcher) processPending(ctx context.Context, batches chan<- []media.LocalFile) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch := w.takeReady(time.Now())
			if len(batch) == 0 {
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// takeReady забирает из pending файлы, которые не менялись дольше debounceTime.
func (w *Watcher) takeReady(now time.Time) []media.LocalFile {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []media.LocalFile
	for path, p := range w.pending {
		if now.Sub(p.at) < w.debounceTime {
			continue
		}
		delete(w.pending, path)

		// Файл могли удалить за время ожидания
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ready = append(ready, p.file)
	}

	slices.SortFunc(ready, func(a, b media.LocalFile) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return ready
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Обработка переименования файлов (обновление ссылок)
- Rate limiting для большого количества файлов
*/
