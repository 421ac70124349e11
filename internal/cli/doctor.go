package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/mediaconverter/internal/binfinder"
)

// newDoctorCmd создаёт команду doctor.
func (a *app) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Проверить доступность энкодеров и директорий",
		RunE: func(cmd *cobra.Command, args []string) error {
			finder := a.finder()
			problems := 0

			fmt.Fprintln(a.out, "🩺 Энкодеры:")
			for _, name := range []string{"cwebp", "ffmpeg"} {
				info, err := finder.Probe(name)
				switch {
				case info == nil:
					problems++
					fmt.Fprintf(a.out, "   ❌ %s: %v\n", name, err)
				case err != nil:
					problems++
					fmt.Fprintf(a.out, "   ⚠️  %s: %s (%v)\n", name, info.Path, err)
				default:
					fmt.Fprintf(a.out, "   ✅ %s: %s (версия %s)%s\n", name, info.Path, info.Version, bundledMark(info))
				}
			}

			fmt.Fprintln(a.out, "📁 Пути:")
			if a.cfg.MediaDir == "" {
				fmt.Fprintln(a.out, "   ⚠️  директория медиа не указана (--media-dir)")
			} else if st, err := os.Stat(a.cfg.MediaDir); err != nil || !st.IsDir() {
				problems++
				fmt.Fprintf(a.out, "   ❌ директория медиа недоступна: %s\n", a.cfg.MediaDir)
			} else {
				fmt.Fprintf(a.out, "   ✅ медиа: %s\n", a.cfg.MediaDir)
			}

			if problems > 0 {
				return fmt.Errorf("найдено проблем: %d", problems)
			}
			return nil
		},
	}
}

func bundledMark(info *binfinder.Info) string {
	if info.Bundled {
		return " [встроенный]"
	}
	return ""
}
