package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rvasily/squadvoice/pkg/logger"
)

// Open opens (or creates) the session database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One writer at a time keeps both channel pipelines from tripping over
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

// UtteranceStorage persists processed utterances.
type UtteranceStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewUtteranceStorage creates the storage and its schema.
func NewUtteranceStorage(db *sql.DB, log *logger.Logger) (*UtteranceStorage, error) {
	s := &UtteranceStorage{
		db:     db,
		logger: log.Named("sqlite"),
	}
	if err := s.initDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UtteranceStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS utterances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL,
			source_lang TEXT NOT NULL,
			target_lang TEXT NOT NULL,
			source_text TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			fixed_text TEXT NOT NULL,
			corrected INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create utterances table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_utterances_channel ON utterances(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_created_at ON utterances(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create utterance index: %w", err)
		}
	}
	return nil
}

// Store inserts one record and returns its ID.
func (s *UtteranceStorage) Store(rec *UtteranceRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO utterances
		(channel, source_lang, target_lang, source_text, raw_text, fixed_text, corrected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Channel,
		rec.SourceLang,
		rec.TargetLang,
		rec.SourceText,
		rec.RawText,
		rec.FixedText,
		rec.Corrected,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert utterance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetRecent returns the most recent records across all channels.
func (s *UtteranceStorage) GetRecent(limit int) ([]*UtteranceRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, channel, source_lang, target_lang, source_text, raw_text, fixed_text, corrected, created_at
		FROM utterances
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent utterances: %w", err)
	}
	defer rows.Close()
	return s.scanRows(rows)
}

// GetByChannel returns the most recent records for one channel.
func (s *UtteranceStorage) GetByChannel(channel string, limit int) ([]*UtteranceRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, channel, source_lang, target_lang, source_text, raw_text, fixed_text, corrected, created_at
		FROM utterances
		WHERE channel = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		channel, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query utterances by channel: %w", err)
	}
	defer rows.Close()
	return s.scanRows(rows)
}

// GetByTimeRange returns records within [startTime, endTime].
func (s *UtteranceStorage) GetByTimeRange(startTime, endTime time.Time) ([]*UtteranceRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, channel, source_lang, target_lang, source_text, raw_text, fixed_text, corrected, created_at
		FROM utterances
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC, id DESC`,
		startTime.Format(time.RFC3339), endTime.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query utterances by time range: %w", err)
	}
	defer rows.Close()
	return s.scanRows(rows)
}

func (s *UtteranceStorage) scanRows(rows *sql.Rows) ([]*UtteranceRecord, error) {
	var records []*UtteranceRecord
	for rows.Next() {
		var rec UtteranceRecord
		var createdAt string
		if err := rows.Scan(
			&rec.ID,
			&rec.Channel,
			&rec.SourceLang,
			&rec.TargetLang,
			&rec.SourceText,
			&rec.RawText,
			&rec.FixedText,
			&rec.Corrected,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan utterance: %w", err)
		}
		var err error
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
