package notestore

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Типы заметок. Имена полей разделены \x1f.
	`CREATE TABLE IF NOT EXISTS notetypes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		fields TEXT NOT NULL,
		sort_idx INTEGER NOT NULL DEFAULT 0
	);`,

	// Миграция 2: Заметки. Значения полей разделены \x1f.
	`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		notetype_id INTEGER NOT NULL REFERENCES notetypes(id),
		flds TEXT NOT NULL,
		mod INTEGER NOT NULL
	);`,

	// Миграция 3: Журнал отмены
	`CREATE TABLE IF NOT EXISTS undo_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,

	// Миграция 4: Снимки заметок до изменения. Для каждой записи журнала
	// хранится самое раннее состояние заметки.
	`CREATE TABLE IF NOT EXISTS undo_changes (
		entry_id INTEGER NOT NULL REFERENCES undo_entries(id) ON DELETE CASCADE,
		note_id INTEGER NOT NULL,
		old_flds TEXT NOT NULL,
		old_mod INTEGER NOT NULL,
		PRIMARY KEY (entry_id, note_id)
	);`,

	// Миграция 5: История конвертаций
	`CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		src_name TEXT NOT NULL,
		dst_name TEXT,
		status TEXT NOT NULL,
		error TEXT,
		src_size INTEGER NOT NULL DEFAULT 0,
		dst_size INTEGER NOT NULL DEFAULT 0,
		finished_at INTEGER NOT NULL
	);`,

	// Миграция 6: Индексы
	`CREATE INDEX IF NOT EXISTS ix_conversions_run ON conversions (run_id);`,
	`CREATE INDEX IF NOT EXISTS ix_conversions_status ON conversions (status);`,

	// Миграция 7: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}
