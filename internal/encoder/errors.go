package encoder

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEncoderNotFound - нужный бинарник (cwebp, ffmpeg) не найден.
	ErrEncoderNotFound = errors.New("энкодер не найден")

	// ErrConversionFailed - энкодер завершился с ошибкой или не создал файл.
	ErrConversionFailed = errors.New("конвертация не удалась")
)

// EncoderNotFoundError описывает отсутствующий энкодер.
type EncoderNotFoundError struct {
	// Name - имя бинарника.
	Name string

	// Err - исходная ошибка поиска.
	Err error
}

func (e *EncoderNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s не найден: %v", e.Name, e.Err)
	}
	return e.Name + " не найден"
}

// Is позволяет сравнивать ошибку с ErrEncoderNotFound.
func (e *EncoderNotFoundError) Is(target error) bool {
	return target == ErrEncoderNotFound
}

func (e *EncoderNotFoundError) Unwrap() error {
	return e.Err
}

// ConversionFailedError описывает неуспешный запуск энкодера.
type ConversionFailedError struct {
	// Encoder - имя бинарника.
	Encoder string

	// ExitCode - код возврата (-1, если процесс не запустился).
	ExitCode int

	// Output - объединённый вывод stdout/stderr.
	Output string

	// Err - исходная ошибка запуска.
	Err error
}

// maxOutputInError ограничивает объём вывода энкодера в тексте ошибки.
const maxOutputInError = 512

func (e *ConversionFailedError) Error() string {
	msg := fmt.Sprintf("%s завершился с кодом %d", e.Encoder, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		if len(out) > maxOutputInError {
			out = strings.ToValidUTF8(out[:maxOutputInError], "") + "..."
		}
		msg += ": " + out
	}
	return msg
}

// Is позволяет сравнивать ошибку с ErrConversionFailed.
func (e *ConversionFailedError) Is(target error) bool {
	return target == ErrConversionFailed
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Err
}
