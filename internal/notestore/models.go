// Package notestore содержит модели и логику работы с SQLite базой заметок.
package notestore

import (
	"slices"
	"strings"
	"time"
)

// FieldSeparator разделяет значения полей в колонке notes.flds.
const FieldSeparator = "\x1f"

// NoteID - идентификатор заметки.
type NoteID int64

// NotetypeID - идентификатор типа заметки.
type NotetypeID int64

// UndoPosition - идентификатор записи в журнале отмены.
type UndoPosition int64

// OpChanges описывает результат операции над коллекцией.
type OpChanges struct {
	// Notes - количество изменённых заметок.
	Notes int
}

// Notetype описывает набор полей заметки.
type Notetype struct {
	// ID - идентификатор типа.
	ID NotetypeID

	// Name - имя типа ("Basic").
	Name string

	// Fields - имена полей в порядке отображения.
	Fields []string

	// SortIdx - индекс поля сортировки.
	SortIdx int
}

// Note - заметка с именованными текстовыми полями.
type Note struct {
	// ID - идентификатор заметки.
	ID NoteID

	// NotetypeID - тип заметки.
	NotetypeID NotetypeID

	// Mod - время последнего изменения (unix).
	Mod int64

	keys    []string
	values  []string
	sortIdx int
}

// NewNote создаёт заметку в памяти. Количество значений дополняется до количества полей.
func NewNote(id NoteID, nt *Notetype, values []string) *Note {
	vals := make([]string, len(nt.Fields))
	copy(vals, values)
	return &Note{
		ID:         id,
		NotetypeID: nt.ID,
		keys:       slices.Clone(nt.Fields),
		values:     vals,
		sortIdx:    nt.SortIdx,
	}
}

// Keys возвращает имена полей.
func (n *Note) Keys() []string {
	return slices.Clone(n.keys)
}

// Values возвращает значения полей в порядке типа заметки.
func (n *Note) Values() []string {
	return slices.Clone(n.values)
}

// Get возвращает значение поля по имени.
func (n *Note) Get(name string) (string, bool) {
	i := slices.Index(n.keys, name)
	if i < 0 {
		return "", false
	}
	return n.values[i], true
}

// Set устанавливает значение поля. Возвращает false для неизвестного поля.
func (n *Note) Set(name, value string) bool {
	i := slices.Index(n.keys, name)
	if i < 0 {
		return false
	}
	n.values[i] = value
	return true
}

// SortField возвращает содержимое поля сортировки.
func (n *Note) SortField() string {
	if n.sortIdx < 0 || n.sortIdx >= len(n.values) {
		return ""
	}
	return n.values[n.sortIdx]
}

// JoinedFields возвращает значения всех полей, склеенные разделителем.
func (n *Note) JoinedFields() string {
	return strings.Join(n.values, FieldSeparator)
}

// Clone возвращает независимую копию заметки.
func (n *Note) Clone() *Note {
	c := *n
	c.keys = slices.Clone(n.keys)
	c.values = slices.Clone(n.values)
	return &c
}

// ConversionStatus - итог конвертации одного файла.
type ConversionStatus string

const (
	// ConversionOK - файл сконвертирован и ссылки обновлены.
	ConversionOK ConversionStatus = "ok"
	// ConversionFailed - конвертация завершилась с ошибкой.
	ConversionFailed ConversionStatus = "failed"
)

// Conversion - запись истории конвертаций.
type Conversion struct {
	// RunID - идентификатор запуска (uuid).
	RunID string

	// Kind - тип файла (image/audio).
	Kind string

	// SrcName - исходное имя файла.
	SrcName string

	// DstName - новое имя файла (пусто при ошибке).
	DstName string

	// Status - итог.
	Status ConversionStatus

	// Error - сообщение об ошибке.
	Error string

	// SrcSize - размер исходного файла.
	SrcSize int64

	// DstSize - размер результата.
	DstSize int64

	// FinishedAt - время записи.
	FinishedAt time.Time
}

// Stats - сводка по базе.
type Stats struct {
	// Notes - количество заметок.
	Notes int64

	// Runs - количество запусков конвертации.
	Runs int64

	// Converted - успешно сконвертированных файлов.
	Converted int64

	// Failed - файлов с ошибками.
	Failed int64

	// SrcBytes - суммарный размер исходников успешных конвертаций.
	SrcBytes int64

	// DstBytes - суммарный размер результатов.
	DstBytes int64

	// UndoEntries - записей в журнале отмены.
	UndoEntries int64
}
