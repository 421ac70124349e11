// Package naming строит имена выходных файлов.
package naming

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
)

const (
	prefixPaste        = "paste"
	prefixSortField    = "sort-field"
	prefixCustomField  = "custom-field"
	prefixCurrentField = "current-field"

	suffixTimeNumber = "time-number"
	suffixTimeHuman  = "time-human"

	// humanTimeLayout соответствует "%d-%b-%Y_%H-%M-%S".
	humanTimeLayout = "02-Jan-2006_15-04-05"
)

var (
	prefixes = []string{prefixPaste, prefixSortField, prefixCustomField, prefixCurrentField}
	suffixes = []string{suffixTimeNumber, suffixTimeHuman}
)

// Patterns возвращает все шаблоны имени в порядке номеров (0-7).
func Patterns() []string {
	patterns := make([]string, 0, len(prefixes)*len(suffixes))
	for _, p := range prefixes {
		for _, s := range suffixes {
			patterns = append(patterns, p+"_"+s)
		}
	}
	return patterns
}

// Fields - доступ к полям заметки, на основе которых строится имя.
type Fields interface {
	// Get возвращает значение поля по имени.
	Get(name string) (string, bool)
	// SortField возвращает содержимое поля сортировки.
	SortField() string
	// Values возвращает значения полей в порядке типа заметки.
	Values() []string
}

// Context описывает файл, для которого строится имя.
type Context struct {
	// Note - заметка, ссылающаяся на файл (может быть nil).
	Note Fields

	// CurrentField - индекс текущего поля (-1 если неизвестен).
	CurrentField int

	// Original - исходное имя файла.
	Original string

	// Kind - тип файла.
	Kind media.Kind
}

// Factory строит имена по настройкам пользователя.
type Factory struct {
	preserveOriginal bool
	pattern          string
	customField      string
	now              func() time.Time
}

// NewFactory создаёт Factory из конфигурации.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		preserveOriginal: cfg.PreserveOriginalFilenames,
		pattern:          Patterns()[cfg.PatternNum()],
		customField:      cfg.CustomNameField,
		now:              time.Now,
	}
}

// SetClock подменяет источник времени.
func (f *Factory) SetClock(now func() time.Time) {
	f.now = now
}

// BaseName возвращает очищенное имя файла без расширения.
func (f *Factory) BaseName(c Context) string {
	if f.preserveOriginal && c.Original != "" {
		base := filepath.Base(c.Original)
		return Sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return Sanitize(f.apply(c))
}

func (f *Factory) apply(c Context) string {
	prefix, suffix, _ := strings.Cut(f.pattern, "_")

	var head string
	switch prefix {
	case prefixSortField:
		head = sortField(c)
	case prefixCustomField:
		head = f.customFieldValue(c)
	case prefixCurrentField:
		head = currentField(c)
	default:
		head = prefixPaste
	}

	now := f.now()
	var tail string
	switch suffix {
	case suffixTimeHuman:
		tail = now.UTC().Format(humanTimeLayout)
	default:
		tail = strconv.FormatInt(now.UnixMilli(), 10)
	}

	return head + "_" + tail
}

// sortField возвращает поле сортировки заметки, а если оно пустое, тип файла.
func sortField(c Context) string {
	if c.Note != nil {
		if v := c.Note.SortField(); htmlToTextLine(v) != "" {
			return v
		}
	}
	if c.Kind == media.KindAudio {
		return "audio"
	}
	return "image"
}

func (f *Factory) customFieldValue(c Context) string {
	if c.Note != nil {
		if v, ok := c.Note.Get(f.customField); ok {
			return v
		}
	}
	return sortField(c)
}

func currentField(c Context) string {
	if c.Note != nil && c.CurrentField >= 0 {
		if values := c.Note.Values(); c.CurrentField < len(values) {
			return values[c.CurrentField]
		}
	}
	return sortField(c)
}

/*
Возможные расширения:
- Пользовательские шаблоны с подстановками {field:Front}
- Суффикс с коротким хэшем содержимого
*/
