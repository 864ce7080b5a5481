package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"kursgenerator/internal/models"

	_ "modernc.org/sqlite"
)

// Storage definiert das Interface für Datenpersistenz
type Storage interface {
	// Quelldokumente
	SaveSource(src *models.Source) error
	GetSource(id string) (*models.Source, error)
	GetAllSources() ([]models.Source, error)
	DeleteSource(id string) error

	// Segmente
	ReplaceSegments(sourceID string, segments []models.Segment) error
	GetSegments(sourceID string) ([]models.Segment, error)

	// Kurse
	SaveCourse(course *models.Course) error
	GetCourse(id string) (*models.Course, error)
	GetAllCourses() ([]models.Course, error)
	DeleteCourse(id string) error

	Close() error
}

// SQLiteStorage implementiert Storage mit SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage erstellt eine neue SQLite-Storage-Instanz
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content TEXT,
		char_count INTEGER DEFAULT 0,
		segment_count INTEGER DEFAULT 0,
		page_count INTEGER DEFAULT 0,
		ingested_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS segments (
		source_id TEXT NOT NULL,
		segment_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		heading TEXT,
		fingerprint TEXT NOT NULL,
		char_count INTEGER,
		word_count INTEGER,
		start_offset INTEGER,
		end_offset INTEGER,
		PRIMARY KEY (source_id, segment_index),
		FOREIGN KEY (source_id) REFERENCES sources(id)
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS modules (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		title TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		module_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (module_id) REFERENCES modules(id)
	);

	CREATE INDEX IF NOT EXISTS idx_segments_source ON segments(source_id);
	CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id);
	CREATE INDEX IF NOT EXISTS idx_items_module ON items(module_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Quelldokumente

func (s *SQLiteStorage) SaveSource(src *models.Source) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sources (id, name, content, char_count, segment_count, page_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, src.ID, src.Name, src.Text, src.CharCount, src.SegmentCount, src.PageCount, src.IngestedAt)
	return err
}

func (s *SQLiteStorage) GetSource(id string) (*models.Source, error) {
	var src models.Source
	err := s.db.QueryRow(`
		SELECT id, name, content, char_count, segment_count, page_count, ingested_at
		FROM sources WHERE id = ?
	`, id).Scan(&src.ID, &src.Name, &src.Text, &src.CharCount, &src.SegmentCount, &src.PageCount, &src.IngestedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *SQLiteStorage) GetAllSources() ([]models.Source, error) {
	rows, err := s.db.Query(`
		SELECT id, name, char_count, segment_count, page_count, ingested_at
		FROM sources ORDER BY ingested_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.CharCount, &src.SegmentCount, &src.PageCount, &src.IngestedAt); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStorage) DeleteSource(id string) error {
	if _, err := s.db.Exec(`DELETE FROM segments WHERE source_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	return err
}

// Segmente

// ReplaceSegments ersetzt den Segmentbestand einer Quelle atomar.
// Wiederholte Aufnahme desselben Dokuments führt damit nie zu Duplikaten.
func (s *SQLiteStorage) ReplaceSegments(sourceID string, segments []models.Segment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM segments WHERE source_id = ?`, sourceID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO segments (source_id, segment_index, text, heading, fingerprint, char_count, word_count, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seg := range segments {
		if _, err := stmt.Exec(sourceID, seg.Index, seg.Text, seg.Heading, seg.Fingerprint,
			seg.CharCount, seg.WordCount, seg.StartOffset, seg.EndOffset); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`UPDATE sources SET segment_count = ? WHERE id = ?`, len(segments), sourceID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) GetSegments(sourceID string) ([]models.Segment, error) {
	rows, err := s.db.Query(`
		SELECT segment_index, text, heading, fingerprint, char_count, word_count, start_offset, end_offset
		FROM segments WHERE source_id = ? ORDER BY segment_index
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.Index, &seg.Text, &seg.Heading, &seg.Fingerprint,
			&seg.CharCount, &seg.WordCount, &seg.StartOffset, &seg.EndOffset); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// Kurse

func (s *SQLiteStorage) SaveCourse(course *models.Course) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO courses (id, title, source_id, created_at)
		VALUES (?, ?, ?, ?)
	`, course.ID, course.Title, course.SourceID, course.CreatedAt); err != nil {
		return err
	}

	for _, module := range course.Modules {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO modules (id, course_id, title, position)
			VALUES (?, ?, ?, ?)
		`, module.ID, course.ID, module.Title, module.Position); err != nil {
			return err
		}

		for pos, item := range module.Items {
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("item %s serialisieren: %w", item.ID, err)
			}
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO items (id, module_id, kind, payload, position)
				VALUES (?, ?, ?, ?, ?)
			`, item.ID, module.ID, string(item.Kind), string(payload), pos); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) GetCourse(id string) (*models.Course, error) {
	var course models.Course
	err := s.db.QueryRow(`
		SELECT id, title, source_id, created_at FROM courses WHERE id = ?
	`, id).Scan(&course.ID, &course.Title, &course.SourceID, &course.CreatedAt)
	if err != nil {
		return nil, err
	}

	course.Modules, err = s.getModules(course.ID)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *SQLiteStorage) getModules(courseID string) ([]models.Module, error) {
	rows, err := s.db.Query(`
		SELECT id, course_id, title, position FROM modules
		WHERE course_id = ? ORDER BY position
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []models.Module
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range modules {
		items, err := s.getItems(modules[i].ID)
		if err != nil {
			return nil, err
		}
		modules[i].Items = items
	}
	return modules, nil
}

func (s *SQLiteStorage) getItems(moduleID string) ([]models.GeneratedItem, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM items WHERE module_id = ? ORDER BY position
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.GeneratedItem
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item models.GeneratedItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("item deserialisieren: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) GetAllCourses() ([]models.Course, error) {
	rows, err := s.db.Query(`
		SELECT id, title, source_id, created_at FROM courses ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(&course.ID, &course.Title, &course.SourceID, &course.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s *SQLiteStorage) DeleteCourse(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE module_id IN (SELECT id FROM modules WHERE course_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM modules WHERE course_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM courses WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
