// Package store persists report metadata and chat session history in a
// local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cyberflux/internal/logging"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. All access goes through the mutex;
// the service is small enough that contention does not matter and the
// driver prefers a single writer anyway.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// ReportRecord is one generated report's persisted metadata.
type ReportRecord struct {
	ID         string    `json:"id"`
	CSVFile    string    `json:"csv_file"`
	PDFPath    string    `json:"pdf_path"`
	NumRecords int       `json:"num_records"`
	Suspicious int       `json:"suspicious_records"`
	LLMTrust   float64   `json:"llm_trust"`
	UsedLLM    bool      `json:"used_llm"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionTurn is one question/answer exchange in a follow-up session.
type SessionTurn struct {
	SessionID  string    `json:"session_id"`
	TurnNumber int       `json:"turn_number"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.StoreDebug("store opened at %s", path)
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		csv_file TEXT NOT NULL,
		pdf_path TEXT NOT NULL,
		num_records INTEGER NOT NULL,
		suspicious_records INTEGER NOT NULL,
		llm_trust REAL NOT NULL,
		used_llm INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);

	CREATE TABLE IF NOT EXISTS session_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		question TEXT,
		answer TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON session_turns(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveReport persists one report's metadata.
func (s *Store) SaveReport(rec ReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usedLLM := 0
	if rec.UsedLLM {
		usedLLM = 1
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO reports (id, csv_file, pdf_path, num_records, suspicious_records, llm_trust, used_llm)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CSVFile, rec.PDFPath, rec.NumRecords, rec.Suspicious, rec.LLMTrust, usedLLM,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads one report by id. sql.ErrNoRows surfaces when missing.
func (s *Store) GetReport(id string) (ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec ReportRecord
	var usedLLM int
	err := s.db.QueryRow(
		`SELECT id, csv_file, pdf_path, num_records, suspicious_records, llm_trust, used_llm, created_at
		 FROM reports WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.CSVFile, &rec.PDFPath, &rec.NumRecords, &rec.Suspicious, &rec.LLMTrust, &usedLLM, &rec.CreatedAt)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	rec.UsedLLM = usedLLM != 0
	return rec, nil
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(limit int) ([]ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, csv_file, pdf_path, num_records, suspicious_records, llm_trust, used_llm, created_at
		 FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		var usedLLM int
		if err := rows.Scan(&rec.ID, &rec.CSVFile, &rec.PDFPath, &rec.NumRecords, &rec.Suspicious, &rec.LLMTrust, &usedLLM, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		rec.UsedLLM = usedLLM != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveTurn appends one session turn.
// Uses INSERT OR IGNORE so replayed turns are silently skipped.
func (s *Store) SaveTurn(turn SessionTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO session_turns (session_id, turn_number, question, answer)
		 VALUES (?, ?, ?, ?)`,
		turn.SessionID, turn.TurnNumber, turn.Question, turn.Answer,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// GetTurns returns all turns of a session in order.
func (s *Store) GetTurns(sessionID string) ([]SessionTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT session_id, turn_number, question, answer, created_at
		 FROM session_turns WHERE session_id = ? ORDER BY turn_number ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	var out []SessionTurn
	for rows.Next() {
		var turn SessionTurn
		if err := rows.Scan(&turn.SessionID, &turn.TurnNumber, &turn.Question, &turn.Answer, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
