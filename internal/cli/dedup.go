package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/dedup"
)

// newDedupCmd создаёт команду dedup.
func (a *app) newDedupCmd() *cobra.Command {
	var (
		dryRun  bool
		remove  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Заменить ссылки на одинаковые файлы ссылками на один оригинал",
		Long: `Сравнивает содержимое файлов директории медиа (sha256 + размер).
В каждой группе одинаковых файлов оригиналом считается файл с самым коротким именем,
ссылки на остальные файлы в заметках заменяются ссылкой на оригинал.
Файлы, имя которых начинается с '_', не рассматриваются.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			d := dedup.New(store, a.cfg.MediaDir, workers, a.log)

			fmt.Fprintf(a.out, "🔍 Поиск дубликатов в %s...\n", a.cfg.MediaDir)
			groups, err := d.Collect(ctx)
			if err != nil {
				return fmt.Errorf("не удалось найти дубликаты: %w", err)
			}
			if len(groups) == 0 {
				fmt.Fprintln(a.out, "✨ Дубликаты не найдены")
				return nil
			}

			for _, g := range groups {
				fmt.Fprintf(a.out, "   📎 %s\n", g.Original.Name)
				for _, c := range g.Copies {
					fmt.Fprintf(a.out, "      ↳ %s\n", c.Name)
				}
			}

			if dryRun {
				fmt.Fprintf(a.out, "📋 Копий: %d (dry-run, заметки не изменены)\n", dedup.CopyCount(groups))
				return nil
			}

			changes, err := d.Deduplicate(ctx, groups)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Обновлено заметок: %d (копий: %d)\n", changes.Notes, dedup.CopyCount(groups))

			if remove {
				fmt.Fprintf(a.out, "🗑️  Удалено копий: %d\n", d.RemoveCopies(groups))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Только показать дубликаты")
	cmd.Flags().BoolVar(&remove, "remove", false, "Удалить файлы-копии после обновления заметок")
	cmd.Flags().IntVar(&workers, "workers", a.cfg.Workers, "Количество воркеров для хэширования")

	return cmd
}

// newUndoCmd создаёт команду undo.
func (a *app) newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Отменить последнюю операцию над заметками",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			label, restored, err := store.Undo(cmd.Context())
			if err != nil {
				return fmt.Errorf("не удалось отменить операцию: %w", err)
			}

			fmt.Fprintf(a.out, "↩️  Отменено: %s (заметок: %d)\n", label, restored)
			return nil
		},
	}
}
