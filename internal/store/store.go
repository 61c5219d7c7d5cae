// Package store owns the on-disk dashboard document: durable load/save with
// defaulting, atomic replacement, and modification-marker tracking.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awidyan/homeboard/internal/models"
)

var (
	// ErrCorrupted indicates the on-disk document is not valid JSON. The
	// original bytes are left untouched for forensic recovery; callers fall
	// back to the in-memory default.
	ErrCorrupted = errors.New("stored dashboard is corrupted")
	// ErrInvalidConfig indicates a document missing the minimum required
	// shape (a services sequence). Nothing is written on this error.
	ErrInvalidConfig = errors.New("invalid dashboard config")
)

// Store provides durable get/set of the dashboard document. The marker it
// returns is the document file's mtime in Unix milliseconds, forced strictly
// forward on every save so that equality means "unchanged" and strictly
// greater means "changed".
type Store struct {
	path       string
	mu         sync.Mutex
	lastMarker int64
	onChange   func(marker int64)
}

// New creates a Store for the document at path. The parent directory is
// created on first save if needed.
func New(path string) *Store {
	return &Store{path: path}
}

// OnChange registers a callback invoked after every successful save with the
// new modification marker. Used by the watch hub to push markers to clients.
func (s *Store) OnChange(fn func(marker int64)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Path returns the location of the document file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document, initializing and persisting the default one if
// none exists yet. Stored documents are merged over the default so fields
// introduced by newer schema versions are always present. Returns
// ErrCorrupted when the on-disk bytes are not valid JSON; the file is not
// overwritten in that case.
func (s *Store) Load() (*models.Dashboard, int64, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if err != nil {
		if !os.IsNotExist(err) {
			return nil, 0, err
		}
		doc := models.DefaultDashboard()
		marker, err := s.Save(doc)
		if err != nil {
			return nil, 0, err
		}
		return doc, marker, nil
	}

	doc := models.DefaultDashboard()
	if err := json.Unmarshal(data, doc); err != nil {
		marker, _ := s.Marker()
		return nil, marker, ErrCorrupted
	}

	marker, err := s.Marker()
	if err != nil {
		return nil, 0, err
	}
	return doc, marker, nil
}

// Save validates and persists the document, stamping metadata.lastModified,
// and returns the new modification marker. The write is
// temp-file-then-rename so no reader ever observes a partial document; a
// validation failure leaves the previous document untouched.
//
// metadata.configHash is deliberately not touched here: it records the
// content as of the last backup and is stamped by the backup manager.
func (s *Store) Save(doc *models.Dashboard) (int64, error) {
	if doc == nil || doc.Services == nil {
		return 0, ErrInvalidConfig
	}

	doc.Metadata.LastModified = time.Now().UTC().Format(time.RFC3339)
	doc.Metadata.BackupCadenceMinutes = models.ClampCadence(doc.Metadata.BackupCadenceMinutes)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return 0, err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}

	marker, err := s.advanceMarker()
	if err != nil {
		return 0, err
	}

	if s.onChange != nil {
		go s.onChange(marker)
	}
	return marker, nil
}

// advanceMarker ensures each save strictly increases the marker even when
// the filesystem clock has coarse resolution. Caller holds s.mu.
func (s *Store) advanceMarker() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}

	marker := info.ModTime().UnixMilli()
	if marker <= s.lastMarker {
		marker = s.lastMarker + 1
		forced := time.UnixMilli(marker)
		if err := os.Chtimes(s.path, forced, forced); err != nil {
			return 0, err
		}
	}
	s.lastMarker = marker
	return marker, nil
}

// Marker returns the current modification marker without deserializing the
// document. Returns 0 when no document exists yet.
func (s *Store) Marker() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.ModTime().UnixMilli(), nil
}

// CheckChanged reports whether the document changed since the given marker.
// Strictly greater, not not-equal, so a client's own echoed write is never
// misread as a foreign change. Pure read: never mutates the marker.
func (s *Store) CheckChanged(since int64) (bool, int64, error) {
	marker, err := s.Marker()
	if err != nil {
		return false, 0, err
	}
	return marker > since, marker, nil
}
