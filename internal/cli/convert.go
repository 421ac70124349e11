package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/mediaconverter/internal/convert"
	"github.com/artemshloyda/mediaconverter/internal/encoder"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
	"github.com/artemshloyda/mediaconverter/internal/progress"
)

// noteSelection - выбор заметок для конвертации.
type noteSelection struct {
	all    bool
	ids    []int64
	query  string
	fields []string
}

// addConversionFlags регистрирует флаги настроек конвертации.
func (a *app) addConversionFlags(flags *pflag.FlagSet) {
	cfg := a.cfg

	// Изображения
	flags.BoolVar(&cfg.EnableImageConversion, "images", cfg.EnableImageConversion, "Конвертировать изображения")
	flags.StringVar((*string)(&cfg.ImageFormat), "image-format", string(cfg.ImageFormat), "Формат изображений: webp, avif")
	flags.IntVar(&cfg.ImageQuality, "quality", cfg.ImageQuality, "Качество изображений (0-100)")
	flags.IntVar(&cfg.ImageWidth, "width", cfg.ImageWidth, "Ширина изображений (0 = не ограничивать)")
	flags.IntVar(&cfg.ImageHeight, "height", cfg.ImageHeight, "Высота изображений (0 = не ограничивать)")
	flags.BoolVar(&cfg.AvoidUpscaling, "avoid-upscaling", cfg.AvoidUpscaling, "Не увеличивать маленькие изображения")
	flags.StringVar(&cfg.ExcludedImageContainers, "exclude-images", cfg.ExcludedImageContainers,
		"Расширения изображений через запятую, которые не конвертируются")
	flags.BoolVar(&cfg.BulkReconvert, "reconvert", cfg.BulkReconvert, "Повторно конвертировать файлы целевого формата")
	flags.StringSliceVar(&cfg.CwebpArgs, "cwebp-args", cfg.CwebpArgs, "Дополнительные аргументы cwebp")
	flags.StringSliceVar(&cfg.FfmpegArgs, "ffmpeg-args", cfg.FfmpegArgs, "Дополнительные аргументы ffmpeg для изображений")

	// Аудио
	flags.BoolVar(&cfg.EnableAudioConversion, "audio", cfg.EnableAudioConversion, "Конвертировать аудио")
	flags.StringVar((*string)(&cfg.AudioContainer), "audio-container", string(cfg.AudioContainer), "Аудиоконтейнер: opus, ogg")
	flags.IntVar(&cfg.AudioBitrateK, "bitrate", cfg.AudioBitrateK, "Битрейт аудио в кбит/с (8-600)")
	flags.StringVar(&cfg.ExcludedAudioContainers, "exclude-audio", cfg.ExcludedAudioContainers,
		"Расширения аудио через запятую, которые не конвертируются")
	flags.StringSliceVar(&cfg.FfmpegAudioArgs, "ffmpeg-audio-args", cfg.FfmpegAudioArgs, "Дополнительные аргументы ffmpeg для аудио")

	// Имена файлов
	flags.BoolVar(&cfg.PreserveOriginalFilenames, "preserve-names", cfg.PreserveOriginalFilenames, "Сохранять исходные имена файлов")
	flags.IntVar(&cfg.FilenamePatternNum, "pattern", cfg.FilenamePatternNum, "Шаблон имени файла (0-7)")
	flags.StringVar(&cfg.CustomNameField, "custom-field", cfg.CustomNameField, "Поле заметки для шаблона custom-field")

	// Обработка
	flags.BoolVar(&cfg.Parallel, "parallel", cfg.Parallel, "Конвертировать параллельно")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество параллельных воркеров")
	flags.IntVar(&cfg.MaxMemoryMB, "max-memory", cfg.MaxMemoryMB, "Ограничение памяти в МБ (0 = без ограничения)")
	flags.DurationVar(&cfg.EncodeTimeout, "encode-timeout", cfg.EncodeTimeout, "Таймаут на один файл, например 10m (0 = без ограничения)")
	flags.BoolVar(&cfg.DeleteOriginalOnConvert, "delete-original", cfg.DeleteOriginalOnConvert,
		"Удалять исходные файлы после обновления заметок")

	// Энкодеры
	flags.StringVar(&cfg.CwebpPath, "cwebp-path", cfg.CwebpPath, "Путь к cwebp")
	flags.StringVar(&cfg.FfmpegPath, "ffmpeg-path", cfg.FfmpegPath, "Путь к ffmpeg")
	flags.StringVar(&cfg.SupportDir, "support-dir", cfg.SupportDir, "Директория со встроенными энкодерами")
}

// newConvertCmd создаёт команду convert.
func (a *app) newConvertCmd() *cobra.Command {
	var (
		sel    noteSelection
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Сконвертировать медиа в заметках и обновить ссылки",
		Long: `Находит в заметках ссылки на изображения (<img src>) и аудио ([sound:]),
конвертирует файлы и заменяет ссылки одной отменяемой операцией.

Ctrl+C останавливает запуск новых конвертаций. Уже запущенные доводятся до конца,
их результаты записываются в заметки.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd.Context(), sel, dryRun)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&sel.all, "all", false, "Все заметки")
	flags.Int64SliceVar(&sel.ids, "notes", nil, "ID заметок через запятую")
	flags.StringVar(&sel.query, "query", "", "Заметки, содержащие строку")
	flags.StringSliceVar(&sel.fields, "fields", nil, "Поля заметок (по умолчанию все)")
	flags.BoolVar(&dryRun, "dry-run", false, "Показать файлы без конвертации")
	a.addConversionFlags(flags)

	cmd.MarkFlagsOneRequired("all", "notes", "query")
	cmd.MarkFlagsMutuallyExclusive("all", "notes", "query")

	return cmd
}

// selectNotes возвращает ID выбранных заметок.
func selectNotes(ctx context.Context, store *notestore.Store, sel noteSelection) ([]notestore.NoteID, error) {
	switch {
	case sel.all:
		notes, err := store.ListNotes(ctx, 0)
		if err != nil {
			return nil, err
		}
		ids := make([]notestore.NoteID, 0, len(notes))
		for _, n := range notes {
			ids = append(ids, n.ID)
		}
		return ids, nil
	case sel.query != "":
		return store.FindNotes(ctx, sel.query)
	default:
		ids := make([]notestore.NoteID, 0, len(sel.ids))
		for _, id := range sel.ids {
			ids = append(ids, notestore.NoteID(id))
		}
		slices.Sort(ids)
		return slices.Compact(ids), nil
	}
}

// runConvert выполняет основную логику конвертации.
func (a *app) runConvert(ctx context.Context, sel noteSelection, dryRun bool) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ids, err := selectNotes(ctx, store, sel)
	if err != nil {
		return fmt.Errorf("не удалось выбрать заметки: %w", err)
	}

	enc := encoder.New(a.cfg, a.finder(), a.cfg.MediaDir, a.log)
	task, err := convert.NewTask(ctx, store, ids, sel.fields, a.cfg, enc, a.log)
	if err != nil {
		return fmt.Errorf("не удалось подготовить задачу: %w", err)
	}

	if task.Size() == 0 {
		fmt.Fprintf(a.out, "✨ Нечего конвертировать (заметок: %d)\n", len(ids))
		return nil
	}

	if dryRun {
		fmt.Fprintf(a.out, "📋 Файлов для конвертации: %d\n", task.Size())
		for _, file := range task.Files() {
			fmt.Fprintf(a.out, "   %s  (%s, заметок: %d)\n", file.Name, file.Kind, len(task.NotesFor(file)))
		}
		return nil
	}

	// Выводим параметры
	fmt.Fprintf(a.out, "🚀 Запуск конвертации:\n")
	fmt.Fprintf(a.out, "   Медиа: %s\n", a.cfg.MediaDir)
	fmt.Fprintf(a.out, "   Заметок: %d, файлов: %d\n", len(ids), task.Size())
	if a.cfg.EnableImageConversion {
		fmt.Fprintf(a.out, "   Изображения: %s (качество: %d)\n", a.cfg.ImageFormat, a.cfg.Quality())
	}
	if a.cfg.EnableAudioConversion {
		fmt.Fprintf(a.out, "   Аудио: %s (%d кбит/с)\n", a.cfg.Audio(), a.cfg.BitrateK())
	}
	if len(sel.fields) > 0 {
		fmt.Fprintf(a.out, "   Поля: %s\n", strings.Join(sel.fields, ", "))
	}
	fmt.Fprintln(a.out)

	bar := progress.New(progress.Options{
		Total:       task.Size(),
		Description: "Конвертация",
		Disabled:    a.cfg.NoProgress,
	})

	stop := a.onInterrupt(func() {
		task.SetCanceled()
		bar.Canceling()
	})
	err = task.Run(ctx, bar.Handler())
	stop()
	bar.Finish()
	if err != nil {
		return err
	}

	// Фиксация выполняется даже после отмены
	report, err := task.UpdateNotes(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	report.Print(a.out, a.cfg.Verbose)
	fmt.Fprintf(a.out, "   ⏱️  Время: %s\n", bar.Duration().Round(time.Millisecond))

	if n := len(report.Failed); n > 0 {
		return fmt.Errorf("завершено с %d ошибками", n)
	}
	return nil
}
