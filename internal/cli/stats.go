package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/worker"
)

// newStatsCmd создаёт команду stats.
func (a *app) newStatsCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику из базы данных",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if runID != "" {
				records, err := store.Conversions(ctx, runID)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return fmt.Errorf("запуск '%s' не найден", runID)
				}

				fmt.Fprintf(a.out, "🆔 Запуск %s:\n\n", runID)
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ФАЙЛ\tРЕЗУЛЬТАТ\tСТАТУС\tРАЗМЕР")
				for _, c := range records {
					result := c.DstName
					if c.Error != "" {
						result = c.Error
					}
					size := worker.FormatBytes(c.SrcSize)
					if c.DstSize > 0 {
						size += " -> " + worker.FormatBytes(c.DstSize)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.SrcName, shorten(result, 60), c.Status, size)
				}
				return w.Flush()
			}

			st, err := store.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("не удалось получить статистику: %w", err)
			}

			stats := worker.Stats{Converted: st.Converted, InputBytes: st.SrcBytes, OutputBytes: st.DstBytes}

			fmt.Fprintf(a.out, "📊 Статистика базы данных:\n")
			fmt.Fprintf(a.out, "   Заметок: %d\n", st.Notes)
			fmt.Fprintf(a.out, "   Запусков: %d\n", st.Runs)
			fmt.Fprintf(a.out, "   Сконвертировано: %d\n", st.Converted)
			fmt.Fprintf(a.out, "   Ошибок: %d\n", st.Failed)
			fmt.Fprintf(a.out, "   Записей отмены: %d\n", st.UndoEntries)
			if st.SrcBytes > 0 {
				fmt.Fprintf(a.out, "   Сэкономлено: %s (%.1f%%)\n",
					worker.FormatBytes(stats.SavedBytes()), stats.SavedPercent())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Показать файлы одного запуска")

	return cmd
}
