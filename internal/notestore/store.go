package notestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrNoteNotFound возвращается, когда заметки с таким ID нет.
	ErrNoteNotFound = errors.New("заметка не найдена")

	// ErrNotetypeNotFound возвращается, когда типа заметки с таким ID или именем нет.
	ErrNotetypeNotFound = errors.New("тип заметки не найден")

	// ErrNothingToUndo возвращается, когда журнал отмены пуст.
	ErrNothingToUndo = errors.New("нечего отменять")
)

// Collection - операции над заметками, доступные внутри одной транзакции.
type Collection interface {
	// GetNote загружает заметку по ID.
	GetNote(ctx context.Context, id NoteID) (*Note, error)

	// FindNotes ищет заметки, содержащие текст query хотя бы в одном поле.
	FindNotes(ctx context.Context, query string) ([]NoteID, error)

	// AddCustomUndoEntry создаёт запись журнала отмены и возвращает её позицию.
	AddCustomUndoEntry(ctx context.Context, label string) (UndoPosition, error)

	// UpdateNotes сохраняет заметки, запоминая их прежнее состояние.
	UpdateNotes(ctx context.Context, notes []*Note) (OpChanges, error)

	// MergeUndoEntries сливает все записи журнала после pos в запись pos.
	MergeUndoEntries(ctx context.Context, pos UndoPosition) (OpChanges, error)
}

// querier - общий интерфейс *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store предоставляет методы для работы с базой заметок.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open создаёт новое подключение к SQLite и выполняет миграции.
func Open(dbPath string) (*Store, error) {
	// Создаём директорию для БД, если не существует
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: time.Now}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Store) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	return s.db.Close()
}

// Op выполняет fn в одной транзакции. Если fn вернула ошибку,
// все изменения (включая записи журнала отмены) откатываются.
func (s *Store) Op(ctx context.Context, fn func(col Collection) (OpChanges, error)) (OpChanges, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OpChanges{}, fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	changes, err := fn(&collection{q: tx, now: s.now})
	if err != nil {
		_ = tx.Rollback()
		return OpChanges{}, err
	}

	if err := tx.Commit(); err != nil {
		return OpChanges{}, fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return changes, nil
}

// GetNote загружает заметку вне транзакции.
func (s *Store) GetNote(ctx context.Context, id NoteID) (*Note, error) {
	return (&collection{q: s.db, now: s.now}).GetNote(ctx, id)
}

// FindNotes ищет заметки вне транзакции.
func (s *Store) FindNotes(ctx context.Context, query string) ([]NoteID, error) {
	return (&collection{q: s.db, now: s.now}).FindNotes(ctx, query)
}

// AddNotetype создаёт тип заметки.
func (s *Store) AddNotetype(ctx context.Context, name string, fields []string, sortIdx int) (*Notetype, error) {
	if len(fields) == 0 {
		return nil, errors.New("тип заметки должен содержать хотя бы одно поле")
	}
	if sortIdx < 0 || sortIdx >= len(fields) {
		return nil, errors.Errorf("индекс поля сортировки %d вне диапазона", sortIdx)
	}
	for _, f := range fields {
		if f == "" || strings.Contains(f, FieldSeparator) {
			return nil, errors.Errorf("некорректное имя поля %q", f)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notetypes (name, fields, sort_idx) VALUES (?, ?, ?)`,
		name, strings.Join(fields, FieldSeparator), sortIdx,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать тип заметки: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить ID типа заметки: %w", err)
	}

	return &Notetype{ID: NotetypeID(id), Name: name, Fields: fields, SortIdx: sortIdx}, nil
}

// Notetype загружает тип заметки по имени.
func (s *Store) Notetype(ctx context.Context, name string) (*Notetype, error) {
	var (
		nt     Notetype
		fields string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, fields, sort_idx FROM notetypes WHERE name = ?`, name,
	).Scan(&nt.ID, &nt.Name, &fields, &nt.SortIdx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrNotetypeNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить тип заметки: %w", err)
	}
	nt.Fields = strings.Split(fields, FieldSeparator)
	return &nt, nil
}

// Notetypes возвращает все типы заметок.
func (s *Store) Notetypes(ctx context.Context) ([]*Notetype, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, fields, sort_idx FROM notetypes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить типы заметок: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Notetype
	for rows.Next() {
		var (
			nt     Notetype
			fields string
		)
		if err := rows.Scan(&nt.ID, &nt.Name, &fields, &nt.SortIdx); err != nil {
			return nil, fmt.Errorf("не удалось прочитать тип заметки: %w", err)
		}
		nt.Fields = strings.Split(fields, FieldSeparator)
		result = append(result, &nt)
	}
	return result, rows.Err()
}

// AddNote создаёт заметку заданного типа. Изменение не попадает в журнал отмены.
func (s *Store) AddNote(ctx context.Context, nt *Notetype, values []string) (*Note, error) {
	if len(values) > len(nt.Fields) {
		return nil, errors.Errorf("у типа %q %d полей, передано %d значений", nt.Name, len(nt.Fields), len(values))
	}

	note := NewNote(0, nt, values)
	note.Mod = s.now().Unix()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (notetype_id, flds, mod) VALUES (?, ?, ?)`,
		nt.ID, note.JoinedFields(), note.Mod,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать заметку: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить ID заметки: %w", err)
	}
	note.ID = NoteID(id)
	return note, nil
}

// ListNotes возвращает до limit заметок в порядке ID (все при limit <= 0).
func (s *Store) ListNotes(ctx context.Context, limit int) ([]*Note, error) {
	query := noteSelect + ` ORDER BY n.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить заметки: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

// Undo откатывает последнюю запись журнала. Возвращает её метку и
// количество восстановленных заметок.
func (s *Store) Undo(ctx context.Context) (string, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		entryID int64
		label   string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, label FROM undo_entries ORDER BY id DESC LIMIT 1`,
	).Scan(&entryID, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNothingToUndo
	}
	if err != nil {
		return "", 0, fmt.Errorf("не удалось прочитать журнал отмены: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET
			flds = (SELECT old_flds FROM undo_changes c WHERE c.entry_id = ? AND c.note_id = notes.id),
			mod = (SELECT old_mod FROM undo_changes c WHERE c.entry_id = ? AND c.note_id = notes.id)
		WHERE id IN (SELECT note_id FROM undo_changes WHERE entry_id = ?)
	`, entryID, entryID, entryID)
	if err != nil {
		return "", 0, fmt.Errorf("не удалось восстановить заметки: %w", err)
	}
	restored, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM undo_changes WHERE entry_id = ?`, entryID); err != nil {
		return "", 0, fmt.Errorf("не удалось очистить журнал отмены: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM undo_entries WHERE id = ?`, entryID); err != nil {
		return "", 0, fmt.Errorf("не удалось очистить журнал отмены: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return label, int(restored), nil
}

// RecordConversions сохраняет историю одного запуска конвертации.
func (s *Store) RecordConversions(ctx context.Context, records []Conversion) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conversions (run_id, kind, src_name, dst_name, status, error, src_size, dst_size, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("не удалось подготовить запрос: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		finished := r.FinishedAt
		if finished.IsZero() {
			finished = s.now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.RunID, r.Kind, r.SrcName, nullString(r.DstName), string(r.Status), nullString(r.Error),
			r.SrcSize, r.DstSize, finished.Unix(),
		); err != nil {
			return fmt.Errorf("не удалось записать конвертацию %s: %w", r.SrcName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// Conversions возвращает историю запуска runID (всю историю при пустом runID).
func (s *Store) Conversions(ctx context.Context, runID string) ([]Conversion, error) {
	query := `SELECT run_id, kind, src_name, COALESCE(dst_name, ''), status, COALESCE(error, ''),
		src_size, dst_size, finished_at FROM conversions`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить историю: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []Conversion
	for rows.Next() {
		var (
			c        Conversion
			status   string
			finished int64
		)
		if err := rows.Scan(&c.RunID, &c.Kind, &c.SrcName, &c.DstName, &status, &c.Error,
			&c.SrcSize, &c.DstSize, &finished); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись истории: %w", err)
		}
		c.Status = ConversionStatus(status)
		c.FinishedAt = time.Unix(finished, 0)
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetStats возвращает сводку по базе.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM notes),
			(SELECT COUNT(DISTINCT run_id) FROM conversions),
			(SELECT COUNT(*) FROM conversions WHERE status = ?),
			(SELECT COUNT(*) FROM conversions WHERE status = ?),
			(SELECT COALESCE(SUM(src_size), 0) FROM conversions WHERE status = ?),
			(SELECT COALESCE(SUM(dst_size), 0) FROM conversions WHERE status = ?),
			(SELECT COUNT(*) FROM undo_entries)
	`, ConversionOK, ConversionFailed, ConversionOK, ConversionOK).Scan(
		&st.Notes, &st.Runs, &st.Converted, &st.Failed, &st.SrcBytes, &st.DstBytes, &st.UndoEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить статистику: %w", err)
	}
	return &st, nil
}

// collection реализует Collection поверх транзакции или подключения.
type collection struct {
	q     querier
	now   func() time.Time
	entry UndoPosition
}

const noteSelect = `SELECT n.id, n.notetype_id, n.flds, n.mod, t.fields, t.sort_idx
	FROM notes n JOIN notetypes t ON t.id = n.notetype_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*Note, error) {
	var (
		n            Note
		flds, fields string
	)
	if err := r.Scan(&n.ID, &n.NotetypeID, &flds, &n.Mod, &fields, &n.sortIdx); err != nil {
		return nil, err
	}
	n.keys = strings.Split(fields, FieldSeparator)
	n.values = make([]string, len(n.keys))
	copy(n.values, strings.Split(flds, FieldSeparator))
	return &n, nil
}

func (c *collection) GetNote(ctx context.Context, id NoteID) (*Note, error) {
	note, err := scanNote(c.q.QueryRowContext(ctx, noteSelect+` WHERE n.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNoteNotFound, "id %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить заметку %d: %w", id, err)
	}
	return note, nil
}

// likeEscaper экранирует спецсимволы LIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c *collection) FindNotes(ctx context.Context, query string) ([]NoteID, error) {
	if query == "" {
		return nil, nil
	}

	rows, err := c.q.QueryContext(ctx,
		`SELECT id FROM notes WHERE flds LIKE ? ESCAPE '\' ORDER BY id`,
		"%"+likeEscaper.Replace(query)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить поиск заметок: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []NoteID
	for rows.Next() {
		var id NoteID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("не удалось прочитать ID заметки: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (c *collection) AddCustomUndoEntry(ctx context.Context, label string) (UndoPosition, error) {
	res, err := c.q.ExecContext(ctx,
		`INSERT INTO undo_entries (label, created_at) VALUES (?, ?)`, label, c.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать запись журнала отмены: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить ID записи журнала: %w", err)
	}
	c.entry = UndoPosition(id)
	return c.entry, nil
}

// currentEntry возвращает запись журнала текущей операции, создавая её при необходимости.
func (c *collection) currentEntry(ctx context.Context) (UndoPosition, error) {
	if c.entry != 0 {
		return c.entry, nil
	}
	return c.AddCustomUndoEntry(ctx, "Update notes")
}

func (c *collection) UpdateNotes(ctx context.Context, notes []*Note) (OpChanges, error) {
	if len(notes) == 0 {
		return OpChanges{}, nil
	}

	entry, err := c.currentEntry(ctx)
	if err != nil {
		return OpChanges{}, err
	}

	mod := c.now().Unix()
	changed := 0
	for _, n := range notes {
		// Снимок берётся только при первом изменении заметки в рамках записи
		if _, err := c.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO undo_changes (entry_id, note_id, old_flds, old_mod)
			SELECT ?, id, flds, mod FROM notes WHERE id = ?
		`, entry, n.ID); err != nil {
			return OpChanges{}, fmt.Errorf("не удалось сохранить снимок заметки %d: %w", n.ID, err)
		}

		res, err := c.q.ExecContext(ctx,
			`UPDATE notes SET flds = ?, mod = ? WHERE id = ?`, n.JoinedFields(), mod, n.ID,
		)
		if err != nil {
			return OpChanges{}, fmt.Errorf("не удалось обновить заметку %d: %w", n.ID, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return OpChanges{}, errors.Wrapf(ErrNoteNotFound, "id %d", n.ID)
		}
		n.Mod = mod
		changed++
	}

	return OpChanges{Notes: changed}, nil
}

func (c *collection) MergeUndoEntries(ctx context.Context, pos UndoPosition) (OpChanges, error) {
	// Более ранний снимок (в записи pos) имеет приоритет
	if _, err := c.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO undo_changes (entry_id, note_id, old_flds, old_mod)
		SELECT ?, note_id, old_flds, old_mod FROM undo_changes WHERE entry_id > ? ORDER BY entry_id
	`, pos, pos); err != nil {
		return OpChanges{}, fmt.Errorf("не удалось объединить записи журнала: %w", err)
	}
	if _, err := c.q.ExecContext(ctx, `DELETE FROM undo_changes WHERE entry_id > ?`, pos); err != nil {
		return OpChanges{}, fmt.Errorf("не удалось объединить записи журнала: %w", err)
	}
	if _, err := c.q.ExecContext(ctx, `DELETE FROM undo_entries WHERE id > ?`, pos); err != nil {
		return OpChanges{}, fmt.Errorf("не удалось объединить записи журнала: %w", err)
	}

	c.entry = pos

	var n int
	if err := c.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM undo_changes WHERE entry_id = ?`, pos,
	).Scan(&n); err != nil {
		return OpChanges{}, fmt.Errorf("не удалось подсчитать изменения: %w", err)
	}
	return OpChanges{Notes: n}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

/*
Возможные расширения:
- Поиск в синтаксисе "field:Front текст" и "nid:1,2"
- Redo после Undo
- Очистка старых записей журнала отмены
*/
