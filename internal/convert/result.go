package convert

import (
	"maps"
	"sync"

	"github.com/artemshloyda/mediaconverter/internal/media"
)

// Result накапливает итоги конвертации. Безопасен для конкурентного использования.
// Файл не может одновременно быть в converted и failed.
type Result struct {
	mu        sync.Mutex
	converted map[media.LocalFile]string
	failed    map[media.LocalFile]error
}

// NewResult создаёт пустой Result.
func NewResult() *Result {
	return &Result{
		converted: make(map[media.LocalFile]string),
		failed:    make(map[media.LocalFile]error),
	}
}

// AddConverted запоминает новое имя сконвертированного файла.
func (r *Result) AddConverted(file media.LocalFile, newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.failed, file)
	r.converted[file] = newName
}

// AddFailed запоминает ошибку конвертации файла.
func (r *Result) AddFailed(file media.LocalFile, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.converted, file)
	r.failed[file] = err
}

// Converted возвращает копию map сконвертированных файлов.
func (r *Result) Converted() map[media.LocalFile]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.converted)
}

// Failed возвращает копию map файлов с ошибками.
func (r *Result) Failed() map[media.LocalFile]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.failed)
}

// HasResults возвращает true, если есть хотя бы один итог.
func (r *Result) HasResults() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.converted) > 0 || len(r.failed) > 0
}
