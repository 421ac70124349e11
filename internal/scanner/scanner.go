// Package scanner находит ссылки на медиафайлы в тексте заметок.
package scanner

import (
	"iter"
	"regexp"
	"strings"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
)

var (
	imageRe = regexp.MustCompile(`(?i)<img[^<>]*\ssrc=(?:"([^"]+)"|'([^']+)')[^<>]*>`)
	audioRe = regexp.MustCompile(`(?i)\[sound:([^\]]+)\]`)
)

// Scanner извлекает имена файлов, которые нужно конвертировать.
// Результат зависит только от текста и конфигурации.
type Scanner struct {
	cfg *config.Config
}

// New создаёт новый Scanner.
func New(cfg *config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Images возвращает имена изображений из <img src="...">, которые не исключены.
// Последовательность ленивая и может перебираться повторно; дубликаты не удаляются.
func (s *Scanner) Images(html string, includeConverted bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !containsFold(html, "<img") {
			return
		}
		excluded := s.cfg.ExcludedImageExtensions(includeConverted)
		for _, m := range imageRe.FindAllStringSubmatch(html, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if isExcluded(name, excluded) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// Audio возвращает имена аудиофайлов из [sound:...], которые не исключены.
func (s *Scanner) Audio(html string, includeConverted bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !containsFold(html, "[sound:") {
			return
		}
		excluded := s.cfg.ExcludedAudioExtensions(includeConverted)
		for _, m := range audioRe.FindAllStringSubmatch(html, -1) {
			if isExcluded(m[1], excluded) {
				continue
			}
			if !yield(m[1]) {
				return
			}
		}
	}
}

// Files возвращает все ссылки текста с учётом включённых типов конвертации.
// Изображения учитывают reconvert, аудио никогда не конвертируется повторно.
func (s *Scanner) Files(html string) iter.Seq[media.LocalFile] {
	return func(yield func(media.LocalFile) bool) {
		if s.cfg.EnableImageConversion {
			for name := range s.Images(html, s.cfg.BulkReconvert) {
				if !yield(media.Image(name)) {
					return
				}
			}
		}
		if s.cfg.EnableAudioConversion {
			for name := range s.Audio(html, false) {
				if !yield(media.Audio(name)) {
					return
				}
			}
		}
	}
}

// Classify определяет, можно ли конвертировать файл директории медиа.
// Используется при слежении за директорией, где ссылки ещё неизвестны.
func (s *Scanner) Classify(name string) (media.LocalFile, bool) {
	if media.IsAudioFile(name) {
		if !s.cfg.EnableAudioConversion || isExcluded(name, s.cfg.ExcludedAudioExtensions(false)) {
			return media.LocalFile{}, false
		}
		return media.Audio(name), true
	}
	if !media.IsImageFile(name) || !s.cfg.EnableImageConversion || isExcluded(name, s.cfg.ExcludedImageExtensions(s.cfg.BulkReconvert)) {
		return media.LocalFile{}, false
	}
	return media.Image(name), true
}

func isExcluded(name string, excluded map[string]struct{}) bool {
	_, ok := excluded[media.Ext(name)]
	return ok
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

/*
Возможные расширения:
- Распознавать <video>/<audio> теги
- Распознавать ссылки в CSS (background-image)
*/
