package convert

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/worker"
)

// ConvertedFile - успешно сконвертированный файл.
type ConvertedFile struct {
	File    media.LocalFile
	NewName string
	SrcSize int64
	DstSize int64
}

// FailedFile - файл, который не удалось сконвертировать.
type FailedFile struct {
	File media.LocalFile
	Err  error
}

// Report - итог запуска задачи.
type Report struct {
	// RunID - идентификатор запуска.
	RunID string

	// State - состояние задачи на момент фиксации.
	State State

	// Converted - сконвертированные файлы в порядке обнаружения.
	Converted []ConvertedFile

	// Failed - файлы с ошибками в порядке обнаружения.
	Failed []FailedFile

	// Discarded - файлы, не запущенные из-за отмены.
	Discarded []media.LocalFile

	// NotesUpdated - количество обновлённых заметок.
	NotesUpdated int

	// Deleted - количество удалённых исходников.
	Deleted int

	// Stats - сводная статистика.
	Stats worker.Stats
}

func (t *Task) buildReport() *Report {
	converted := t.result.Converted()
	failed := t.result.Failed()

	t.mu.Lock()
	defer t.mu.Unlock()

	r := &Report{
		RunID:     t.runID,
		State:     t.state,
		Discarded: slices.Clone(t.discarded),
	}
	for _, file := range t.files {
		if name, ok := converted[file]; ok {
			sz := t.sizes[file]
			r.Converted = append(r.Converted, ConvertedFile{File: file, NewName: name, SrcSize: sz.src, DstSize: sz.dst})
			r.Stats.InputBytes += sz.src
			r.Stats.OutputBytes += sz.dst
		}
		if err, ok := failed[file]; ok {
			r.Failed = append(r.Failed, FailedFile{File: file, Err: err})
		}
	}

	r.Stats.Total = int64(len(t.files))
	r.Stats.Converted = int64(len(r.Converted))
	r.Stats.Failed = int64(len(r.Failed))
	r.Stats.Discarded = int64(len(r.Discarded))
	return r
}

// Print выводит отчёт в человекочитаемом виде.
func (r *Report) Print(w io.Writer, verbose bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 50))
	fmt.Fprintln(w, "📊 Результаты конвертации")
	fmt.Fprintln(w, strings.Repeat("═", 50))
	fmt.Fprintf(w, "   🆔 Запуск:         %s\n", r.RunID)
	fmt.Fprintf(w, "   📁 Всего файлов:   %d\n", r.Stats.Total)
	fmt.Fprintf(w, "   ✅ Сконвертировано: %d\n", r.Stats.Converted)
	fmt.Fprintf(w, "   ❌ Ошибок:         %d\n", r.Stats.Failed)
	if r.Stats.Discarded > 0 {
		fmt.Fprintf(w, "   ⏹️  Отменено:       %d\n", r.Stats.Discarded)
	}
	fmt.Fprintf(w, "   📝 Заметок:        %d\n", r.NotesUpdated)
	if r.Deleted > 0 {
		fmt.Fprintf(w, "   🗑️  Удалено:        %d\n", r.Deleted)
	}

	if r.Stats.InputBytes > 0 {
		fmt.Fprintln(w, strings.Repeat("─", 50))
		fmt.Fprintf(w, "   📥 Исходный размер: %s\n", worker.FormatBytes(r.Stats.InputBytes))
		fmt.Fprintf(w, "   📤 Итоговый размер: %s\n", worker.FormatBytes(r.Stats.OutputBytes))
		fmt.Fprintf(w, "   💾 Сэкономлено:     %s (%.1f%%)\n",
			worker.FormatBytes(r.Stats.SavedBytes()), r.Stats.SavedPercent())
	}

	if verbose && len(r.Converted) > 0 {
		fmt.Fprintln(w, strings.Repeat("─", 50))
		for _, c := range r.Converted {
			fmt.Fprintf(w, "   ✅ %s -> %s\n", c.File.Name, c.NewName)
		}
	}

	if len(r.Failed) > 0 {
		fmt.Fprintln(w, strings.Repeat("─", 50))
		for _, f := range r.Failed {
			fmt.Fprintf(w, "   ❌ %s: %v\n", f.File.Name, f.Err)
		}
	}
	fmt.Fprintln(w, strings.Repeat("═", 50))
}
