// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/mediaconverter/internal/binfinder"
	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// app содержит состояние, общее для всех команд.
type app struct {
	// cfg - итоговая конфигурация (файл, пресеты, флаги).
	cfg *config.Config

	// configPath - явный путь к файлу конфигурации.
	configPath string

	// preset - встроенный пресет.
	preset string

	// loadPreset - именованный пресет пользователя.
	loadPreset string

	// savePreset - сохранить итоговую конфигурацию как пресет.
	savePreset string

	// presets - хранилище именованных пресетов (nil = по умолчанию).
	presets *config.PresetStore

	// log - логгер, создаётся после разбора конфигурации.
	log logger.Logger

	out io.Writer
}

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), out: os.Stdout}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediaconverter",
		Short: "Массовая конвертация медиа в заметках",
		Long: `MediaConverter - CLI утилита для массовой конвертации медиафайлов,
на которые ссылаются заметки.

Изображения конвертируются в WebP (cwebp) или AVIF (ffmpeg), аудио в Opus/Ogg (ffmpeg).
Ссылки в заметках обновляются одной атомарной операцией, которую можно отменить.

Примеры:
  # Конвертировать медиа во всех заметках
  mediaconverter convert --media-dir ./collection.media --all

  # Только поле Back у заметок 12 и 15, в AVIF
  mediaconverter convert --media-dir ./media --notes 12,15 --fields Back --image-format avif

  # Отменить последнюю операцию
  mediaconverter undo --media-dir ./media

  # Заменить ссылки на одинаковые файлы
  mediaconverter dedup --media-dir ./media`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolveConfig(cmd); err != nil {
				return err
			}
			a.log = logger.NewWithLevel(a.cfg.LogLevel)
			return nil
		},
	}
	rootCmd.SetOut(a.out)

	flags := rootCmd.PersistentFlags()

	// Конфигурация
	flags.StringVar(&a.configPath, "config", "", "Путь к файлу конфигурации YAML")
	flags.StringVar(&a.preset, "preset", "", "Встроенный пресет: web, small, archive, voice")
	flags.StringVar(&a.loadPreset, "load-preset", "", "Загрузить именованный пресет")
	flags.StringVar(&a.savePreset, "save-preset", "", "Сохранить настройки как именованный пресет")

	// Пути
	flags.StringVar(&a.cfg.MediaDir, "media-dir", a.cfg.MediaDir, "Директория медиафайлов коллекции")
	flags.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "Путь к SQLite базе заметок (по умолчанию <media-dir>/.mediaconverter/notes.sqlite)")

	// Вывод
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Уровень логирования: debug, info, warn, error")
	flags.BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "Подробный вывод")
	flags.BoolVar(&a.cfg.NoProgress, "no-progress", a.cfg.NoProgress, "Отключить прогресс-бар")

	// Подкоманды
	rootCmd.AddCommand(a.newConvertCmd())
	rootCmd.AddCommand(a.newDedupCmd())
	rootCmd.AddCommand(a.newUndoCmd())
	rootCmd.AddCommand(a.newWatchCmd())
	rootCmd.AddCommand(a.newNotesCmd())
	rootCmd.AddCommand(a.newNotetypesCmd())
	rootCmd.AddCommand(a.newStatsCmd())
	rootCmd.AddCommand(a.newPresetsCmd())
	rootCmd.AddCommand(a.newConfigCmd())
	rootCmd.AddCommand(a.newDoctorCmd())
	rootCmd.AddCommand(a.newVersionCmd())

	return rootCmd
}

// savedFlag - значение флага, заданного в командной строке.
type savedFlag struct {
	name  string
	value string
	slice []string
}

// resolveConfig собирает конфигурацию в порядке приоритета:
// файл < встроенный пресет < именованный пресет < флаги командной строки.
func (a *app) resolveConfig(cmd *cobra.Command) error {
	// Запоминаем явно заданные флаги, чтобы вернуть их поверх файла
	var changed []savedFlag
	cmd.Flags().Visit(func(f *pflag.Flag) {
		s := savedFlag{name: f.Name, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			s.slice = sv.GetSlice()
		}
		changed = append(changed, s)
	})

	fc, path, err := config.FindAndLoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if fc != nil {
		fc.ApplyToConfig(a.cfg)
		if a.cfg.Verbose {
			fmt.Fprintf(a.out, "📄 Загружена конфигурация: %s\n", path)
		}
	}

	if a.preset != "" && !a.cfg.ApplyPreset(a.preset) {
		return fmt.Errorf("неизвестный пресет '%s', доступны: %v", a.preset, config.ValidPresets())
	}

	if a.loadPreset != "" {
		store, err := a.presetStore()
		if err != nil {
			return err
		}
		pfc, _, err := store.Load(a.loadPreset)
		if err != nil {
			return err
		}
		pfc.ApplyToConfig(a.cfg)
	}

	for _, s := range changed {
		f := cmd.Flags().Lookup(s.name)
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(s.slice); err != nil {
				return fmt.Errorf("некорректное значение --%s: %w", s.name, err)
			}
			continue
		}
		if err := f.Value.Set(s.value); err != nil {
			return fmt.Errorf("некорректное значение --%s: %w", s.name, err)
		}
	}

	return nil
}

// presetStore возвращает хранилище именованных пресетов.
func (a *app) presetStore() (*config.PresetStore, error) {
	if a.presets != nil {
		return a.presets, nil
	}
	return config.DefaultPresetStore()
}

// validate проверяет конфигурацию и при необходимости сохраняет пресет.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	if a.savePreset != "" {
		store, err := a.presetStore()
		if err != nil {
			return err
		}
		path, err := store.Save(a.savePreset, a.cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "💾 Пресет '%s' сохранён: %s\n", a.savePreset, path)
	}
	return nil
}

// openStore проверяет конфигурацию и открывает базу заметок.
func (a *app) openStore() (*notestore.Store, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	store, err := notestore.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось инициализировать БД: %w", err)
	}
	return store, nil
}

// finder создаёт поиск энкодеров с путями из конфигурации.
func (a *app) finder() *binfinder.Finder {
	return binfinder.NewFinder(a.cfg.SupportDir, map[string]string{
		"cwebp":  a.cfg.CwebpPath,
		"ffmpeg": a.cfg.FfmpegPath,
	})
}

// onInterrupt вызывает fn при первом SIGINT/SIGTERM.
// Возвращаемая функция снимает обработчик.
func (a *app) onInterrupt(fn func()) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(a.out, "\n⚠️  Получен сигнал завершения, останавливаем...")
			fn()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// signalContext возвращает контекст, отменяемый по SIGINT/SIGTERM.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := a.onInterrupt(cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// newVersionCmd создаёт команду version.
func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediaconverter %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Добавить команду clean для удаления неиспользуемых медиафайлов
- Добавить команду export для экспорта истории в JSON
- Добавить автодополнение для имён полей заметок
*/
