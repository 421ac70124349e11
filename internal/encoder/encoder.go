// Package encoder конвертирует медиафайлы коллекции через внешние cwebp и ffmpeg.
package encoder

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/artemshloyda/mediaconverter/internal/binfinder"
	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/naming"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

const (
	cwebpName  = "cwebp"
	ffmpegName = "ffmpeg"
)

// BinaryFinder находит путь к бинарнику энкодера.
type BinaryFinder interface {
	Find(name string) (*binfinder.Info, error)
}

// Runner запускает внешний процесс и возвращает его вывод и код возврата.
type Runner interface {
	Run(ctx context.Context, path string, args []string) (output []byte, exitCode int, err error)
}

// execRunner запускает процессы через os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, path string, args []string) ([]byte, int, error) {
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), err
	}
	return out, -1, err
}

// Encoder конвертирует один файл из директории медиа.
type Encoder struct {
	cfg      *config.Config
	bins     BinaryFinder
	mediaDir string
	names    *naming.Factory
	runner   Runner
	timeout  time.Duration
	log      logger.Logger
}

// New создаёт Encoder.
func New(cfg *config.Config, bins BinaryFinder, mediaDir string, log logger.Logger) *Encoder {
	return &Encoder{
		cfg:      cfg,
		bins:     bins,
		mediaDir: mediaDir,
		names:    naming.NewFactory(cfg),
		runner:   execRunner{},
		timeout:  cfg.EncodeTimeout,
		log:      log,
	}
}

// SetRunner подменяет запуск процессов.
func (e *Encoder) SetRunner(r Runner) {
	e.runner = r
}

// SetTimeout устанавливает таймаут на конвертацию (0 = без ограничения).
func (e *Encoder) SetTimeout(d time.Duration) {
	e.timeout = d
}

// Names возвращает фабрику имён.
func (e *Encoder) Names() *naming.Factory {
	return e.names
}

// MediaDir возвращает директорию медиа.
func (e *Encoder) MediaDir() string {
	return e.mediaDir
}

// Convert конвертирует file и возвращает имя нового файла в директории медиа.
// note и field используются для построения имени (note может быть nil, field = -1).
// Исходный файл не удаляется.
func (e *Encoder) Convert(ctx context.Context, file media.LocalFile, note *notestore.Note, field int) (string, error) {
	src := filepath.Join(e.mediaDir, file.Name)
	info, err := os.Stat(src)
	if err != nil {
		return "", errors.Wrapf(err, "исходный файл %s", file.Name)
	}
	if info.IsDir() {
		return "", errors.Errorf("%s является директорией", file.Name)
	}

	binName, ext := e.target(file)
	bin, err := e.bins.Find(binName)
	if err != nil {
		return "", &EncoderNotFoundError{Name: binName, Err: err}
	}

	nc := naming.Context{CurrentField: field, Original: file.Name, Kind: file.Kind}
	if note != nil {
		nc.Note = note
	}
	dst, err := naming.Reserve(e.mediaDir, e.names.BaseName(nc), ext)
	if err != nil {
		return "", errors.Wrap(err, "не удалось зарезервировать имя")
	}

	// Атомарная запись: энкодер пишет во временный файл с правильным расширением,
	// затем файл переименовывается в зарезервированное имя.
	tmp := strings.TrimSuffix(dst, ext) + ".converting" + ext
	cleanup := func() {
		_ = os.Remove(tmp)
		_ = os.Remove(dst)
	}

	var args []string
	switch {
	case file.Kind == media.KindAudio:
		args = AudioArgs(e.cfg, src, tmp)
	case binName == cwebpName:
		args = WebpArgs(e.cfg, src, tmp, ImageDimensions(src))
	default:
		args = AvifArgs(e.cfg, src, tmp, ImageDimensions(src))
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	e.log.Debug("запуск энкодера", logger.Data{"encoder": bin.Path, "args": args})
	out, code, err := e.runner.Run(runCtx, bin.Path, args)
	if err != nil || code != 0 {
		cleanup()
		if code == 0 {
			code = -1
		}
		return "", &ConversionFailedError{Encoder: binName, ExitCode: code, Output: string(out), Err: err}
	}

	if st, err := os.Stat(tmp); err != nil || st.Size() == 0 {
		cleanup()
		return "", &ConversionFailedError{Encoder: binName, Output: "энкодер не создал выходной файл"}
	}

	if err := os.Rename(tmp, dst); err != nil {
		cleanup()
		return "", errors.Wrapf(err, "не удалось переименовать %s", filepath.Base(tmp))
	}

	name := filepath.Base(dst)
	e.log.Debug("файл сконвертирован", logger.Data{
		"src":      file.Name,
		"dst":      name,
		"duration": time.Since(start).String(),
	})
	return name, nil
}

// target возвращает имя энкодера и расширение результата для файла.
func (e *Encoder) target(file media.LocalFile) (string, string) {
	if file.Kind == media.KindAudio {
		return ffmpegName, e.cfg.AudioExtension()
	}
	if e.cfg.ImageFormat == config.FormatAVIF {
		return ffmpegName, e.cfg.ImageExtension()
	}
	return cwebpName, e.cfg.ImageExtension()
}

/*
Возможные расширения:
- Кодирование в память и проверка, что результат меньше исходника
- Отдельные таймауты для аудио и изображений
- Передача прогресса ffmpeg (-progress pipe:1)
*/
