// Package convert реализует массовую конвертацию медиафайлов, на которые ссылаются заметки.
package convert

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
	"github.com/artemshloyda/mediaconverter/internal/scanner"
	"github.com/artemshloyda/mediaconverter/internal/worker"
)

var (
	// ErrAlreadyConverted - Run вызван для задачи, у которой уже есть результаты.
	ErrAlreadyConverted = errors.New("задача уже выполнена")

	// ErrTaskRunning - Run вызван во время выполнения.
	ErrTaskRunning = errors.New("задача уже выполняется")

	// ErrNotDispatched - UpdateNotes вызван до завершения Run.
	ErrNotDispatched = errors.New("конвертация ещё не выполнялась")

	// ErrAlreadyCommitted - UpdateNotes вызван повторно.
	ErrAlreadyCommitted = errors.New("заметки уже обновлены")
)

// State - состояние задачи.
type State int32

const (
	// StateCreated - задача создана, конвертация не запускалась.
	StateCreated State = iota
	// StateRunning - конвертация выполняется.
	StateRunning
	// StateCompleted - все файлы обработаны.
	StateCompleted
	// StateCanceled - конвертация остановлена, часть файлов не запускалась.
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Store - часть хранилища заметок, нужная задаче.
type Store interface {
	GetNote(ctx context.Context, id notestore.NoteID) (*notestore.Note, error)
	Op(ctx context.Context, fn func(col notestore.Collection) (notestore.OpChanges, error)) (notestore.OpChanges, error)
	RecordConversions(ctx context.Context, records []notestore.Conversion) error
}

// Converter конвертирует один файл и возвращает новое имя.
type Converter interface {
	Convert(ctx context.Context, file media.LocalFile, note *notestore.Note, field int) (string, error)
}

// target - заметки, ссылающиеся на файл, в порядке обнаружения.
type target struct {
	notes map[notestore.NoteID]*notestore.Note
	order []notestore.NoteID
}

func (t *target) add(n *notestore.Note) {
	if _, ok := t.notes[n.ID]; ok {
		return
	}
	t.notes[n.ID] = n
	t.order = append(t.order, n.ID)
}

// sizes - размеры исходника и результата.
type sizes struct {
	src, dst int64
}

// Task - одна массовая конвертация.
type Task struct {
	store Store
	conv  Converter
	cfg   *config.Config
	log   logger.Logger

	fields  []string
	files   []media.LocalFile
	targets map[media.LocalFile]*target

	result   *Result
	canceled atomic.Bool

	mu        sync.Mutex
	state     State
	discarded []media.LocalFile
	sizes     map[media.LocalFile]sizes
	committed bool
	runID     string
}

// NewTask загружает заметки noteIDs и находит в полях fields (пусто = все поля)
// ссылки на файлы, которые нужно сконвертировать.
func NewTask(
	ctx context.Context,
	store Store,
	noteIDs []notestore.NoteID,
	fields []string,
	cfg *config.Config,
	conv Converter,
	log logger.Logger,
) (*Task, error) {
	t := &Task{
		store:   store,
		conv:    conv,
		cfg:     cfg,
		log:     log,
		fields:  slices.Clone(fields),
		targets: make(map[media.LocalFile]*target),
		result:  NewResult(),
		sizes:   make(map[media.LocalFile]sizes),
		runID:   uuid.NewString(),
	}

	sc := scanner.New(cfg)
	for _, id := range noteIDs {
		note, err := store.GetNote(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "не удалось загрузить заметку")
		}

		for file := range sc.Files(t.scopedContent(note)) {
			tg, ok := t.targets[file]
			if !ok {
				tg = &target{notes: make(map[notestore.NoteID]*notestore.Note)}
				t.targets[file] = tg
				t.files = append(t.files, file)
			}
			tg.add(note)
		}
	}

	return t, nil
}

// Size возвращает количество различных файлов для конвертации.
func (t *Task) Size() int {
	return len(t.files)
}

// Files возвращает файлы для конвертации в порядке обнаружения.
func (t *Task) Files() []media.LocalFile {
	return slices.Clone(t.files)
}

// NotesFor возвращает ID заметок, ссылающихся на файл.
func (t *Task) NotesFor(file media.LocalFile) []notestore.NoteID {
	tg, ok := t.targets[file]
	if !ok {
		return nil
	}
	return slices.Clone(tg.order)
}

// Result возвращает накопленные результаты.
func (t *Task) Result() *Result {
	return t.result
}

// RunID возвращает идентификатор запуска.
func (t *Task) RunID() string {
	return t.runID
}

// State возвращает текущее состояние.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetCanceled запрещает запуск новых конвертаций. Повторный вызов ничего не меняет.
func (t *Task) SetCanceled() {
	t.canceled.Store(true)
}

// IsCanceled возвращает true после SetCanceled.
func (t *Task) IsCanceled() bool {
	return t.canceled.Load()
}

// Run конвертирует все файлы. onProgress получает 0 перед началом и затем
// количество обработанных файлов (включая отброшенные из-за отмены).
// Ошибки конвертации отдельных файлов попадают в Result, а не возвращаются.
func (t *Task) Run(ctx context.Context, onProgress func(int)) error {
	if t.result.HasResults() {
		return ErrAlreadyConverted
	}

	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		return ErrTaskRunning
	}
	t.state = StateRunning
	t.discarded = nil
	t.mu.Unlock()

	var (
		progressMu sync.Mutex
		settled    int
	)
	emit := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		settled++
		if onProgress != nil {
			onProgress(settled)
		}
	}
	if onProgress != nil {
		onProgress(0)
	}

	workers := t.cfg.Workers
	if !t.cfg.Parallel {
		workers = 1
	}
	pool := worker.New(workers, t.cfg.MaxMemoryMB)

	jobs := make([]worker.Job, len(t.files))
	for i, file := range t.files {
		jobs[i] = worker.Job{
			Size: t.sourceSize(file),
			Run: func(jobCtx context.Context) {
				t.convertOne(jobCtx, file)
				emit()
			},
		}
	}

	t.log.Info("запуск конвертации", logger.Data{
		"run_id":  t.runID,
		"files":   len(jobs),
		"workers": pool.Workers(),
	})

	skipped := pool.Run(ctx, jobs, t.canceled.Load)

	if ctx.Err() != nil {
		t.SetCanceled()
	}

	t.mu.Lock()
	for _, i := range skipped {
		t.discarded = append(t.discarded, t.files[i])
	}
	if t.canceled.Load() {
		t.state = StateCanceled
	} else {
		t.state = StateCompleted
	}
	t.mu.Unlock()

	for range skipped {
		emit()
	}

	t.log.Info("конвертация завершена", logger.Data{
		"run_id":    t.runID,
		"converted": len(t.result.Converted()),
		"failed":    len(t.result.Failed()),
		"discarded": len(skipped),
	})
	return nil
}

// convertOne конвертирует файл от имени первой ссылающейся на него заметки.
func (t *Task) convertOne(ctx context.Context, file media.LocalFile) {
	tg := t.targets[file]
	note := tg.notes[tg.order[0]]

	src := t.sourceSize(file)
	newName, err := t.conv.Convert(ctx, file, note, t.fieldIndex(note, file.Name))
	if err != nil {
		t.log.Err(err).Warn("не удалось сконвертировать файл", logger.Data{"file": file.Name})
		t.result.AddFailed(file, err)
		return
	}

	var dst int64
	if st, err := os.Stat(filepath.Join(t.cfg.MediaDir, newName)); err == nil {
		dst = st.Size()
	}

	t.mu.Lock()
	t.sizes[file] = sizes{src: src, dst: dst}
	t.mu.Unlock()

	t.result.AddConverted(file, newName)
}

func (t *Task) sourceSize(file media.LocalFile) int64 {
	st, err := os.Stat(filepath.Join(t.cfg.MediaDir, file.Name))
	if err != nil {
		return 0
	}
	return st.Size()
}

// keysToUpdate возвращает поля заметки, в которых ищутся и заменяются ссылки.
func (t *Task) keysToUpdate(note *notestore.Note) []string {
	keys := note.Keys()
	if len(t.fields) == 0 {
		return keys
	}
	return slices.DeleteFunc(keys, func(k string) bool {
		return !slices.Contains(t.fields, k)
	})
}

// scopedContent склеивает значения выбранных полей заметки.
func (t *Task) scopedContent(note *notestore.Note) string {
	keys := t.keysToUpdate(note)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := note.Get(k)
		values = append(values, v)
	}
	return strings.Join(values, notestore.FieldSeparator)
}

// fieldIndex возвращает индекс первого поля, в котором встречается имя файла, или -1.
func (t *Task) fieldIndex(note *notestore.Note, name string) int {
	keys := note.Keys()
	for _, k := range t.keysToUpdate(note) {
		if v, _ := note.Get(k); strings.Contains(v, name) {
			return slices.Index(keys, k)
		}
	}
	return -1
}

/*
Возможные расширения:
- Повторная конвертация только упавших файлов
- Пропуск файлов, которые не уменьшились после конвертации
*/
