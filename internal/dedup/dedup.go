// Package dedup находит одинаковые файлы в директории медиа и
// перенаправляет ссылки заметок на один оригинал.
package dedup

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/notestore"
	"github.com/artemshloyda/mediaconverter/internal/scanner"
	"github.com/artemshloyda/mediaconverter/internal/worker"
)

// Group - набор файлов с одинаковым содержимым.
type Group struct {
	// Original - файл с самым коротким именем.
	Original scanner.File

	// Copies - остальные файлы группы.
	Copies []scanner.File
}

// Store - часть хранилища заметок, нужная для дедупликации.
type Store interface {
	Op(ctx context.Context, fn func(col notestore.Collection) (notestore.OpChanges, error)) (notestore.OpChanges, error)
}

// fileKey - ключ группировки: хэш содержимого и размер.
type fileKey struct {
	hash string
	size int64
}

// Deduper выполняет поиск и устранение дубликатов.
type Deduper struct {
	store    Store
	mediaDir string
	pool     *worker.Pool
	log      logger.Logger
}

// New создаёт Deduper. Хэширование выполняется в workers горутинах.
func New(store Store, mediaDir string, workers int, log logger.Logger) *Deduper {
	return &Deduper{
		store:    store,
		mediaDir: mediaDir,
		pool:     worker.New(workers, 0),
		log:      log,
	}
}

// Collect хэширует файлы директории медиа и возвращает группы дубликатов.
// Файлы, которые не удалось прочитать, пропускаются.
func (d *Deduper) Collect(ctx context.Context) ([]Group, error) {
	files, err := scanner.ListMedia(ctx, d.mediaDir)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		byHash = make(map[fileKey][]scanner.File)
	)
	err = d.pool.ForEach(ctx, len(files), func(_ context.Context, i int) error {
		f := files[i]
		hash, err := scanner.ComputeSHA256(f.Path)
		if err != nil {
			d.log.Err(err).Warn("не удалось вычислить хэш", logger.Data{"file": f.Name})
			return nil
		}

		mu.Lock()
		key := fileKey{hash: hash, size: f.Size}
		byHash[key] = append(byHash[key], f)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups []Group
	for _, same := range byHash {
		if len(same) < 2 {
			continue
		}
		slices.SortFunc(same, func(a, b scanner.File) int {
			return cmp.Or(cmp.Compare(len(a.Name), len(b.Name)), cmp.Compare(a.Name, b.Name))
		})
		groups = append(groups, Group{Original: same[0], Copies: same[1:]})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return cmp.Compare(a.Original.Name, b.Original.Name)
	})

	d.log.Info("поиск дубликатов завершён", logger.Data{"files": len(files), "groups": len(groups)})
	return groups, nil
}

// CopyCount возвращает общее количество копий в группах.
func CopyCount(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Copies)
	}
	return n
}

// Deduplicate заменяет в заметках ссылки на копии ссылками на оригиналы
// одной отменяемой операцией.
func (d *Deduper) Deduplicate(ctx context.Context, groups []Group) (notestore.OpChanges, error) {
	if len(groups) == 0 {
		return notestore.OpChanges{}, nil
	}

	changes, err := d.store.Op(ctx, func(col notestore.Collection) (notestore.OpChanges, error) {
		label := fmt.Sprintf("Replace media links to %d files in notes", CopyCount(groups))
		pos, err := col.AddCustomUndoEntry(ctx, label)
		if err != nil {
			return notestore.OpChanges{}, err
		}

		toUpdate := make(map[notestore.NoteID]*notestore.Note)
		var order []notestore.NoteID
		for _, g := range groups {
			for _, dup := range g.Copies {
				ids, err := col.FindNotes(ctx, dup.Name)
				if err != nil {
					return notestore.OpChanges{}, err
				}
				for _, id := range ids {
					note, ok := toUpdate[id]
					if !ok {
						note, err = col.GetNote(ctx, id)
						if errors.Is(err, notestore.ErrNoteNotFound) {
							d.log.Warn("заметка не найдена", logger.Data{"note_id": id})
							continue
						}
						if err != nil {
							return notestore.OpChanges{}, err
						}
						toUpdate[id] = note
						order = append(order, id)
					}
					replaceInNote(note, dup.Name, g.Original.Name)
				}
			}
		}

		notes := make([]*notestore.Note, 0, len(order))
		for _, id := range order {
			notes = append(notes, toUpdate[id])
		}
		if _, err := col.UpdateNotes(ctx, notes); err != nil {
			return notestore.OpChanges{}, err
		}
		return col.MergeUndoEntries(ctx, pos)
	})
	if err != nil {
		return notestore.OpChanges{}, errors.Wrap(err, "не удалось обновить ссылки")
	}
	return changes, nil
}

// RemoveCopies удаляет файлы-копии. Возвращает количество удалённых файлов.
func (d *Deduper) RemoveCopies(groups []Group) int {
	removed := 0
	for _, g := range groups {
		for _, dup := range g.Copies {
			if err := os.Remove(dup.Path); err != nil {
				d.log.Err(err).Warn("не удалось удалить копию", logger.Data{"file": dup.Name})
				continue
			}
			removed++
		}
	}
	return removed
}

func replaceInNote(note *notestore.Note, dupName, origName string) {
	for _, key := range note.Keys() {
		v, _ := note.Get(key)
		note.Set(key, scanner.ReplaceReferences(v, dupName, origName))
	}
}

/*
Возможные расширения:
- Сравнение изображений по перцептивному хэшу
- Учёт файлов в поддиректориях
*/
