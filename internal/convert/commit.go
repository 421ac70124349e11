package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
	"github.com/artemshloyda/mediaconverter/internal/scanner"
)

// UpdateNotes один раз фиксирует результаты: заменяет ссылки в заметках
// одной отменяемой операцией и сохраняет историю запуска.
// Если ни один файл не сконвертирован, хранилище не изменяется.
func (t *Task) UpdateNotes(ctx context.Context) (*Report, error) {
	t.mu.Lock()
	switch {
	case t.state != StateCompleted && t.state != StateCanceled:
		t.mu.Unlock()
		return nil, ErrNotDispatched
	case t.committed:
		t.mu.Unlock()
		return nil, ErrAlreadyCommitted
	}
	t.committed = true
	t.mu.Unlock()

	report := t.buildReport()
	converted := t.result.Converted()

	if len(converted) > 0 {
		changes, err := t.store.Op(ctx, func(col notestore.Collection) (notestore.OpChanges, error) {
			return t.commit(ctx, col, converted)
		})
		if err != nil {
			// Неудачная фиксация не считается выполненной
			t.mu.Lock()
			t.committed = false
			t.mu.Unlock()
			return nil, errors.Wrap(err, "не удалось обновить заметки")
		}
		report.NotesUpdated = changes.Notes

		if t.cfg.DeleteOriginalOnConvert {
			report.Deleted = t.deleteOriginals(converted)
		}
	}

	if err := t.store.RecordConversions(ctx, t.history(report)); err != nil {
		t.log.Err(err).Warn("не удалось сохранить историю конвертаций")
	}

	return report, nil
}

// commit заменяет ссылки во всех заметках, ссылающихся на сконвертированные файлы.
func (t *Task) commit(
	ctx context.Context,
	col notestore.Collection,
	converted map[media.LocalFile]string,
) (notestore.OpChanges, error) {
	pos, err := col.AddCustomUndoEntry(ctx, fmt.Sprintf("Convert %d files", len(converted)))
	if err != nil {
		return notestore.OpChanges{}, err
	}

	toUpdate := make(map[notestore.NoteID]*notestore.Note)
	for _, file := range t.files {
		newName, ok := converted[file]
		if !ok {
			continue
		}
		for _, id := range t.targets[file].order {
			note, ok := toUpdate[id]
			if !ok {
				// Заметка перечитывается внутри транзакции, чтобы не затереть чужие изменения
				if note, err = col.GetNote(ctx, id); err != nil {
					return notestore.OpChanges{}, err
				}
				toUpdate[id] = note
			}
			for _, key := range t.keysToUpdate(note) {
				v, _ := note.Get(key)
				note.Set(key, scanner.ReplaceReferences(v, file.Name, newName))
			}
		}
	}

	ids := make([]notestore.NoteID, 0, len(toUpdate))
	for id := range toUpdate {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	notes := make([]*notestore.Note, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, toUpdate[id])
	}

	if _, err := col.UpdateNotes(ctx, notes); err != nil {
		return notestore.OpChanges{}, err
	}
	return col.MergeUndoEntries(ctx, pos)
}

// deleteOriginals удаляет исходники сконвертированных файлов.
func (t *Task) deleteOriginals(converted map[media.LocalFile]string) int {
	deleted := 0
	for file := range converted {
		path := filepath.Join(t.cfg.MediaDir, file.Name)
		if err := os.Remove(path); err != nil {
			t.log.Err(err).Warn("не удалось удалить исходный файл", logger.Data{"file": file.Name})
			continue
		}
		deleted++
	}
	return deleted
}

// history превращает отчёт в записи истории конвертаций.
func (t *Task) history(r *Report) []notestore.Conversion {
	now := time.Now()
	records := make([]notestore.Conversion, 0, len(r.Converted)+len(r.Failed))
	for _, c := range r.Converted {
		records = append(records, notestore.Conversion{
			RunID:      t.runID,
			Kind:       string(c.File.Kind),
			SrcName:    c.File.Name,
			DstName:    c.NewName,
			Status:     notestore.ConversionOK,
			SrcSize:    c.SrcSize,
			DstSize:    c.DstSize,
			FinishedAt: now,
		})
	}
	for _, f := range r.Failed {
		records = append(records, notestore.Conversion{
			RunID:      t.runID,
			Kind:       string(f.File.Kind),
			SrcName:    f.File.Name,
			Status:     notestore.ConversionFailed,
			Error:      f.Err.Error(),
			FinishedAt: now,
		})
	}
	return records
}
