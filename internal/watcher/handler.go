package watcher

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/convert"
	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

// Store - хранилище заметок с поиском.
type Store interface {
	convert.Store
	FindNotes(ctx context.Context, query string) ([]notestore.NoteID, error)
}

// Handler конвертирует заметки, ссылающиеся на новые файлы.
type Handler struct {
	store Store
	cfg   *config.Config
	conv  convert.Converter
	log   logger.Logger
}

// NewHandler создаёт Handler.
func NewHandler(store Store, cfg *config.Config, conv convert.Converter, log logger.Logger) *Handler {
	return &Handler{
		store: store,
		cfg:   withoutReconvert(cfg),
		conv:  conv,
		log:   log,
	}
}

// Handle находит заметки, ссылающиеся на files, и конвертирует их медиа.
// Возвращает nil-отчёт, если конвертировать нечего.
func (h *Handler) Handle(ctx context.Context, files []media.LocalFile) (*convert.Report, error) {
	var ids []notestore.NoteID
	for _, f := range files {
		found, err := h.store.FindNotes(ctx, f.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "поиск заметок для %s", f.Name)
		}
		ids = append(ids, found...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if len(ids) == 0 {
		h.log.Debug("новые файлы не используются в заметках", logger.Data{"files": len(files)})
		return nil, nil
	}

	task, err := convert.NewTask(ctx, h.store, ids, nil, h.cfg, h.conv, h.log)
	if err != nil {
		return nil, err
	}
	if task.Size() == 0 {
		return nil, nil
	}

	if err := task.Run(ctx, nil); err != nil {
		return nil, err
	}
	return task.UpdateNotes(context.WithoutCancel(ctx))
}
