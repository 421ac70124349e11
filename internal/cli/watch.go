package cli

import (
	"fmt"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/encoder"
	"github.com/artemshloyda/mediaconverter/internal/watcher"
)

// newWatchCmd создаёт команду watch.
func (a *app) newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Следить за директорией медиа и конвертировать новые файлы",
		Long: `Следит за директорией медиа. Когда появляется новый файл, подлежащий
конвертации, находит ссылающиеся на него заметки и конвертирует их медиа.
Остановка по Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			w, err := watcher.New(a.cfg, a.log)
			if err != nil {
				return err
			}
			w.SetDebounceTime(debounce)

			batches, err := w.Watch(ctx)
			if err != nil {
				return err
			}

			enc := encoder.New(a.cfg, a.finder(), a.cfg.MediaDir, a.log)
			handler := watcher.NewHandler(store, a.cfg, enc, a.log)

			fmt.Fprintf(a.out, "👀 Слежение за %s (Ctrl+C для выхода)\n", a.cfg.MediaDir)

			for batch := range batches {
				for _, f := range batch {
					fmt.Fprintf(a.out, "📥 Новый файл: %s\n", f.Name)
				}

				report, err := handler.Handle(ctx, batch)
				if err != nil {
					a.log.Err(err).Error("не удалось обработать новые файлы", logger.Data{"files": len(batch)})
					continue
				}
				if report != nil {
					report.Print(a.out, a.cfg.Verbose)
				}
			}

			fmt.Fprintln(a.out, "👋 Слежение остановлено")
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Время ожидания окончания записи файла")
	a.addConversionFlags(cmd.Flags())

	return cmd
}
