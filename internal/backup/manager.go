// Package backup implements snapshot policy, storage, retention, and
// restore for the dashboard document.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/awidyan/homeboard/internal/models"
	"github.com/awidyan/homeboard/internal/store"
)

var (
	// ErrNotFound indicates the named backup does not exist.
	ErrNotFound = errors.New("backup not found")
	// ErrPathTraversal indicates a filename that escapes the backup
	// directory. Checked before any filesystem access.
	ErrPathTraversal = errors.New("invalid backup filename")
	// ErrInvalidSource indicates a document too malformed to snapshot.
	ErrInvalidSource = errors.New("invalid backup source")
	// ErrInvalidBackup indicates a snapshot payload missing the minimum
	// required shape; restoring it would propagate corruption.
	ErrInvalidBackup = errors.New("invalid backup payload")
)

// RetentionCount is how many snapshots are kept before the oldest are
// pruned. Fixed for now; a config knob can be added later.
const RetentionCount = 10

const timestampLayout = "20060102-150405.000000000"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Manager owns the backup directory and the live document's restore path.
type Manager struct {
	dir string
	st  *store.Store
}

// New creates a Manager storing snapshots under dir.
func New(dir string, st *store.Store) *Manager {
	return &Manager{dir: dir, st: st}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// ShouldBackup decides whether the previous committed document needs a
// snapshot before it is overwritten. True unconditionally for the first
// backup ever; false inside the cadence window; otherwise true only when
// the content hash differs from the hash recorded at the last backup, so
// no-op edits never spawn redundant snapshots.
func (m *Manager) ShouldBackup(prev *models.Dashboard) bool {
	if prev == nil || !prev.Metadata.BackupEnabled {
		return false
	}
	if prev.Metadata.LastBackup == nil || *prev.Metadata.LastBackup == "" {
		return true
	}

	last, err := time.Parse(time.RFC3339, *prev.Metadata.LastBackup)
	if err != nil {
		return true
	}

	cadence := time.Duration(models.ClampCadence(prev.Metadata.BackupCadenceMinutes)) * time.Minute
	if time.Since(last) < cadence {
		return false
	}

	return store.ContentHash(prev) != prev.Metadata.ConfigHash
}

// MaybeBackup snapshots prev if the policy calls for it and stamps the
// bookkeeping (lastBackup, configHash) into next, the document about to
// replace it. Returns the snapshot filename, or "" when no backup was taken.
// Backup failures are logged, never fatal to the save.
func (m *Manager) MaybeBackup(prev, next *models.Dashboard) string {
	if !m.ShouldBackup(prev) {
		return ""
	}

	filename, err := m.Create(prev, "")
	if err != nil {
		log.Printf("automatic backup failed: %v", err)
		return ""
	}

	now := time.Now().UTC().Format(time.RFC3339)
	next.Metadata.LastBackup = &now
	next.Metadata.ConfigHash = store.ContentHash(prev)
	return filename
}

// Create writes a snapshot of doc and enforces retention. A corrupt or
// empty document is refused so a later restore cannot destroy good state.
// User-supplied names are sanitized to [A-Za-z0-9_-].
func (m *Manager) Create(doc *models.Dashboard, name string) (string, error) {
	if doc == nil || doc.Services == nil {
		return "", ErrInvalidSource
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", ErrInvalidSource
	}

	ts := time.Now().UTC().Format(timestampLayout)
	filename := fmt.Sprintf("backup-%s.json", ts)
	if clean := unsafeChars.ReplaceAllString(name, ""); clean != "" {
		filename = fmt.Sprintf("%s-%s.json", clean, ts)
	}

	if err := os.MkdirAll(m.dir, 0750); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(m.dir, filename), data, 0640); err != nil {
		return "", err
	}

	m.prune()
	return filename, nil
}

// List enumerates snapshots newest-first. Unparsable files are skipped
// rather than failing the whole listing.
func (m *Manager) List() ([]models.BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.BackupInfo{}, nil
		}
		return nil, err
	}

	backups := make([]models.BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		var doc models.Dashboard
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}

		backups = append(backups, models.BackupInfo{
			Filename:     entry.Name(),
			CreatedAt:    info.ModTime().UTC(),
			ServiceCount: len(doc.Services),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Filename > backups[j].Filename
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the live document with a snapshot's payload, after
// snapshotting the current state as a pre-restore safety backup. The
// payload is merged over the default document so fields missing from older
// snapshots get defaults.
func (m *Manager) Restore(filename string) (*models.RestoreResult, error) {
	if err := checkFilename(filename); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	doc, err := ParsePayload(data)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed safety backup is logged, not a reason to block
	// the restore the user asked for.
	safety := ""
	if current, _, err := m.st.Load(); err == nil {
		if name, err := m.Create(current, "pre-restore"); err != nil {
			log.Printf("pre-restore safety backup failed: %v", err)
		} else {
			safety = name
		}
	}

	doc.Metadata.RestoredFrom = filename
	doc.Metadata.RestoredAt = time.Now().UTC().Format(time.RFC3339)
	if _, err := m.st.Save(doc); err != nil {
		return nil, err
	}

	return &models.RestoreResult{
		Success:       true,
		ServicesCount: len(doc.Services),
		SafetyBackup:  safety,
	}, nil
}

// Delete removes a snapshot. Deleting a file that is already absent
// succeeds.
func (m *Manager) Delete(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(m.dir, filename)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ParsePayload validates and decodes a snapshot or import payload, merging
// it over the default document. Returns ErrInvalidBackup when the services
// sequence is missing or malformed.
func ParsePayload(data []byte) (*models.Dashboard, error) {
	var probe struct {
		Services json.RawMessage `json:"services"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, ErrInvalidBackup
	}
	trimmed := strings.TrimSpace(string(probe.Services))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrInvalidBackup
	}

	doc := models.DefaultDashboard()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, ErrInvalidBackup
	}
	return doc, nil
}

func checkFilename(filename string) error {
	if filename == "" ||
		strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, "/\\") {
		return ErrPathTraversal
	}
	return nil
}

// prune keeps only the RetentionCount most recent snapshots.
func (m *Manager) prune() {
	backups, err := m.List()
	if err != nil || len(backups) <= RetentionCount {
		return
	}

	for _, old := range backups[RetentionCount:] {
		if err := os.Remove(filepath.Join(m.dir, old.Filename)); err != nil {
			log.Printf("failed to prune backup %s: %v", old.Filename, err)
		}
	}
}
