package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/config"
)

// newPresetsCmd создаёт команду для управления пресетами.
func (a *app) newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Управление именованными пресетами конфигурации",
		Long: `Управление именованными пресетами конфигурации.

Пресеты хранятся в ~/.config/mediaconverter/presets/ и позволяют
сохранять и загружать настройки для разных коллекций.

Примеры:
  # Сохранить текущие настройки как пресет
  mediaconverter convert --media-dir ./media --all --preset small --save-preset phone

  # Загрузить пресет и запустить конвертацию
  mediaconverter convert --media-dir ./media --all --load-preset phone

  # Список пресетов
  mediaconverter presets list

  # Удалить пресет
  mediaconverter presets delete phone`,
	}

	cmd.AddCommand(a.newPresetsListCmd())
	cmd.AddCommand(a.newPresetsDeleteCmd())
	cmd.AddCommand(a.newPresetsShowCmd())

	return cmd
}

// newPresetsListCmd создаёт команду для списка пресетов.
func (a *app) newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать встроенные и сохранённые пресеты",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.out, "📦 Встроенные пресеты:")
			fmt.Fprintln(a.out)

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tФОРМАТ\tКАЧЕСТВО\tРАЗМЕР\tАУДИО")
			fmt.Fprintln(w, "---\t------\t--------\t------\t-----")
			for _, name := range config.ValidPresets() {
				p := config.Presets[config.Preset(name)]
				format := string(p.Format)
				if !p.Images {
					format = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%dx%d\t%s %d кбит/с\n",
					name, format, p.Quality, p.Width, p.Height, p.Container, p.BitrateK)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			store, err := a.presetStore()
			if err != nil {
				return err
			}
			presets, err := store.List()
			if err != nil {
				return fmt.Errorf("ошибка получения списка пресетов: %w", err)
			}

			fmt.Fprintln(a.out)
			if len(presets) == 0 {
				fmt.Fprintln(a.out, "Сохранённые пресеты не найдены.")
				fmt.Fprintln(a.out)
				fmt.Fprintln(a.out, "Сохраните пресет флагом --save-preset:")
				fmt.Fprintln(a.out, "  mediaconverter convert --media-dir ./media --all --quality 80 --save-preset my-collection")
				return nil
			}

			fmt.Fprintf(a.out, "📦 Сохранённые пресеты (%d):\n\n", len(presets))

			w = tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tФОРМАТ\tКАЧЕСТВО\tПУТЬ")
			fmt.Fprintln(w, "---\t------\t--------\t----")

			for _, p := range presets {
				format := "-"
				quality := "-"
				if p.Config != nil && p.Config.Images != nil {
					if p.Config.Images.Format != "" {
						format = p.Config.Images.Format
					}
					if p.Config.Images.Quality != nil {
						quality = strconv.Itoa(*p.Config.Images.Quality)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, format, quality, p.Path)
			}
			return w.Flush()
		},
	}
}

// newPresetsDeleteCmd создаёт команду для удаления пресета.
func (a *app) newPresetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить пресет",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := a.presetStore()
			if err != nil {
				return err
			}
			if !store.Exists(name) {
				return fmt.Errorf("пресет '%s' не найден", name)
			}

			if err := store.Delete(name); err != nil {
				return fmt.Errorf("ошибка удаления пресета: %w", err)
			}

			fmt.Fprintf(a.out, "✅ Пресет '%s' удалён\n", name)
			return nil
		},
	}
}

// newPresetsShowCmd создаёт команду для отображения пресета.
func (a *app) newPresetsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Показать содержимое пресета",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := a.presetStore()
			if err != nil {
				return err
			}
			_, path, err := store.Load(name)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("не удалось прочитать пресет: %w", err)
			}

			fmt.Fprintf(a.out, "📦 Пресет: %s\n", name)
			fmt.Fprintf(a.out, "📁 Путь: %s\n\n", path)
			fmt.Fprint(a.out, string(data))

			return nil
		},
	}
}

// newConfigCmd создаёт команду для работы с файлом конфигурации.
func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Файл конфигурации",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Создать пример файла конфигурации",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "mediaconverter.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (используйте --force)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateExampleConfig()), 0644); err != nil {
				return fmt.Errorf("не удалось записать %s: %w", path, err)
			}

			fmt.Fprintf(a.out, "✅ Создан %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Перезаписать существующий файл")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Показать итоговую конфигурацию",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc := config.FromConfig(a.cfg)
			fc.Paths = &config.PathsConfig{
				MediaDir:   a.cfg.MediaDir,
				DB:         a.cfg.DBPath,
				Cwebp:      a.cfg.CwebpPath,
				Ffmpeg:     a.cfg.FfmpegPath,
				SupportDir: a.cfg.SupportDir,
			}
			data, err := fc.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

/*
Возможные расширения:
- Добавить команду 'presets export' для экспорта в файл
- Добавить команду 'presets import' для импорта из файла
- Добавить команду 'presets copy' для копирования пресета
*/
