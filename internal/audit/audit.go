// Package audit records config and backup operations in a local SQLite
// database. The JSON document stays the sole system of record for the
// dashboard itself; the audit trail is derived history.
package audit

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded by the server.
const (
	ActionSaveConfig     = "save_config"
	ActionImportConfig   = "import_config"
	ActionCreateBackup   = "create_backup"
	ActionRestoreBackup  = "restore_backup"
	ActionDeleteBackup   = "delete_backup"
	ActionClearIconCache = "clear_icon_cache"
)

// Service writes and reads audit entries.
type Service struct {
	db *sql.DB
}

// Entry is one recorded operation.
type Entry struct {
	ID        string                 `json:"id"`
	Action    string                 `json:"action"`
	ClientIP  string                 `json:"client_ip"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// Open creates the audit database, ensuring the parent directory and
// schema exist.
func Open(dbPath string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	svc := &Service{db: db}
	if err := svc.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return svc, nil
}

// OpenInMemory returns a Service backed by an in-memory database, for tests.
func OpenInMemory() (*Service, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	svc := &Service{db: db}
	if err := svc.migrate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			client_ip TEXT,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);
	`)
	return err
}

// Log records an entry. Audit failures are logged, never propagated: an
// unrecordable operation must still succeed.
func (s *Service) Log(action, clientIP string, details map[string]interface{}) {
	var detailsJSON string
	if details != nil {
		if bytes, err := json.Marshal(details); err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(
		"INSERT INTO audit_logs (id, action, client_ip, details) VALUES (?, ?, ?, ?)",
		uuid.New().String(), action, clientIP, detailsJSON,
	)
	if err != nil {
		log.Printf("failed to write audit entry for %s: %v", action, err)
	}
}

// GetLogs retrieves entries newest-first with pagination.
func (s *Service) GetLogs(limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, action, client_ip, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var clientIP, details *string

		if err := rows.Scan(&entry.ID, &entry.Action, &clientIP, &details, &entry.CreatedAt); err != nil {
			continue
		}
		if clientIP != nil {
			entry.ClientIP = *clientIP
		}
		if details != nil && *details != "" {
			_ = json.Unmarshal([]byte(*details), &entry.Details)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
