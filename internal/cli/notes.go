package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/convert"
	"github.com/artemshloyda/mediaconverter/internal/encoder"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

// newNotesCmd создаёт команду для работы с заметками.
func (a *app) newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Добавление и просмотр заметок",
		Long: `Добавление и просмотр заметок.

Примеры:
  # Добавить заметку типа Basic
  mediaconverter notes add --type Basic '<img src="cat.png">' 'кошка [sound:cat.mp3]'

  # Добавить заметку и сразу сконвертировать её медиа
  mediaconverter notes add --convert '<img src="cat.png">' '[sound:cat.mp3]'

  # Первые 20 заметок
  mediaconverter notes list --limit 20

  # Заметки, ссылающиеся на файл
  mediaconverter notes list --query cat.png`,
	}

	cmd.AddCommand(a.newNotesAddCmd())
	cmd.AddCommand(a.newNotesListCmd())

	return cmd
}

// newNotesAddCmd создаёт команду добавления заметки.
func (a *app) newNotesAddCmd() *cobra.Command {
	var (
		notetype    string
		convertNote bool
	)

	cmd := &cobra.Command{
		Use:   "add [field values...]",
		Short: "Добавить заметку",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			nt, err := store.Notetype(cmd.Context(), notetype)
			if err != nil {
				return fmt.Errorf("тип заметки '%s': %w", notetype, err)
			}
			note, err := store.AddNote(cmd.Context(), nt, args)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "✅ Добавлена заметка %d\n", note.ID)
			if !convertNote {
				return nil
			}
			return a.convertAddedNote(cmd.Context(), store, note.ID)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&notetype, "type", "Basic", "Тип заметки")
	flags.BoolVar(&convertNote, "convert", false, "Сразу сконвертировать медиа новой заметки")
	a.addConversionFlags(flags)

	return cmd
}

// convertAddedNote конвертирует медиа одной заметки и обновляет её отдельной операцией.
func (a *app) convertAddedNote(ctx context.Context, store *notestore.Store, id notestore.NoteID) error {
	enc := encoder.New(a.cfg, a.finder(), a.cfg.MediaDir, a.log)
	task, err := convert.NewTask(ctx, store, []notestore.NoteID{id}, nil, a.cfg, enc, a.log)
	if err != nil {
		return fmt.Errorf("не удалось подготовить задачу: %w", err)
	}
	if task.Size() == 0 {
		fmt.Fprintln(a.out, "✨ Нечего конвертировать")
		return nil
	}

	if err := task.Run(ctx, nil); err != nil {
		return err
	}
	report, err := task.UpdateNotes(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	report.Print(a.out, a.cfg.Verbose)
	if n := len(report.Failed); n > 0 {
		return fmt.Errorf("завершено с %d ошибками", n)
	}
	return nil
}

// newNotesListCmd создаёт команду вывода заметок.
func (a *app) newNotesListCmd() *cobra.Command {
	var (
		limit int
		query string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать заметки",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var notes []*notestore.Note
			if query != "" {
				ids, err := store.FindNotes(ctx, query)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if limit > 0 && len(notes) >= limit {
						break
					}
					note, err := store.GetNote(ctx, id)
					if err != nil {
						return err
					}
					notes = append(notes, note)
				}
			} else {
				notes, err = store.ListNotes(ctx, limit)
				if err != nil {
					return err
				}
			}

			if len(notes) == 0 {
				fmt.Fprintln(a.out, "Заметки не найдены.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tПОЛЯ")
			fmt.Fprintln(w, "--\t----")
			for _, n := range notes {
				parts := make([]string, 0, len(n.Keys()))
				for _, key := range n.Keys() {
					v, _ := n.Get(key)
					parts = append(parts, key+"="+shorten(v, 60))
				}
				fmt.Fprintf(w, "%s\t%s\n", strconv.FormatInt(int64(n.ID), 10), strings.Join(parts, " | "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Максимум заметок (0 = все)")
	cmd.Flags().StringVar(&query, "query", "", "Только заметки, содержащие строку")

	return cmd
}

// newNotetypesCmd создаёт команду для работы с типами заметок.
func (a *app) newNotetypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notetypes",
		Short: "Типы заметок",
	}

	var sortIdx int
	add := &cobra.Command{
		Use:   "add [name] [fields...]",
		Short: "Добавить тип заметки",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			nt, err := store.AddNotetype(cmd.Context(), args[0], args[1:], sortIdx)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "✅ Добавлен тип '%s' (%s)\n", nt.Name, strings.Join(nt.Fields, ", "))
			return nil
		},
	}
	add.Flags().IntVar(&sortIdx, "sort-field", 0, "Номер поля сортировки")

	list := &cobra.Command{
		Use:   "list",
		Short: "Показать типы заметок",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			types, err := store.Notetypes(cmd.Context())
			if err != nil {
				return err
			}
			if len(types) == 0 {
				fmt.Fprintln(a.out, "Типы заметок не найдены.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tПОЛЯ\tСОРТИРОВКА")
			fmt.Fprintln(w, "---\t----\t----------")
			for _, nt := range types {
				fmt.Fprintf(w, "%s\t%s\t%s\n", nt.Name, strings.Join(nt.Fields, ", "), nt.Fields[nt.SortIdx])
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// shorten обрезает строку до n символов.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
