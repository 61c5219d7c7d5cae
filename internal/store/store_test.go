package store_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/awidyan/homeboard/internal/models"
	"github.com/awidyan/homeboard/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(filepath.Join(t.TempDir(), "dashboard.json"))
}

func TestLoad_CreatesDefaultDocument(t *testing.T) {
	st := newTestStore(t)

	doc, marker, err := st.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if doc.Services == nil {
		t.Error("expected services to be initialized")
	}
	if len(doc.Services) != 0 {
		t.Errorf("expected empty default services, got %d", len(doc.Services))
	}
	if len(doc.CategoryOrder) == 0 {
		t.Error("expected default category order to be non-empty")
	}
	if marker == 0 {
		t.Error("expected marker to be set after initial persist")
	}

	if _, err := os.Stat(st.Path()); err != nil {
		t.Errorf("expected default document to be persisted: %v", err)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	st := newTestStore(t)

	doc := models.DefaultDashboard()
	doc.Services = []models.Service{
		{Name: "Grafana", URL: "http://grafana.local:3000", Category: "Monitoring"},
	}
	doc.Theme = "light"
	doc.GridColumns = 6

	if _, err := st.Save(doc); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, _, err := st.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if len(loaded.Services) != 1 || loaded.Services[0].Name != "Grafana" {
		t.Errorf("unexpected services after roundtrip: %+v", loaded.Services)
	}
	if loaded.Theme != "light" {
		t.Errorf("expected theme 'light', got %q", loaded.Theme)
	}
	if loaded.GridColumns != 6 {
		t.Errorf("expected 6 grid columns, got %d", loaded.GridColumns)
	}
	if loaded.Metadata.LastModified == "" {
		t.Error("expected lastModified to be stamped")
	}
}

func TestSave_InvalidLeavesPreviousIntact(t *testing.T) {
	st := newTestStore(t)

	good := models.DefaultDashboard()
	good.Services = []models.Service{{Name: "Pi-hole", URL: "http://pihole.local"}}
	if _, err := st.Save(good); err != nil {
		t.Fatalf("failed to save good document: %v", err)
	}

	before, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}

	bad := models.DefaultDashboard()
	bad.Services = nil
	if _, err := st.Save(bad); !errors.Is(err, store.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	after, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("failed to re-read document: %v", err)
	}
	if string(before) != string(after) {
		t.Error("invalid save modified the stored document")
	}
}

func TestSave_MarkerStrictlyIncreases(t *testing.T) {
	st := newTestStore(t)

	doc := models.DefaultDashboard()
	first, err := st.Save(doc)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second, err := st.Save(doc)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	if second <= first {
		t.Errorf("expected marker to strictly increase: first=%d second=%d", first, second)
	}
}

func TestCheckChanged(t *testing.T) {
	st := newTestStore(t)

	doc := models.DefaultDashboard()
	marker, err := st.Save(doc)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	changed, current, err := st.CheckChanged(marker)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if changed {
		t.Error("expected no change for the current marker")
	}
	if current != marker {
		t.Errorf("expected current marker %d, got %d", marker, current)
	}

	if _, err := st.Save(doc); err != nil {
		t.Fatalf("failed to save again: %v", err)
	}

	changed, _, err = st.CheckChanged(marker)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !changed {
		t.Error("expected change after a subsequent save")
	}
}

func TestLoad_CorruptedFilePreserved(t *testing.T) {
	st := newTestStore(t)

	garbage := []byte("{not json")
	if err := os.WriteFile(st.Path(), garbage, 0640); err != nil {
		t.Fatalf("failed to write garbage: %v", err)
	}

	_, _, err := st.Load()
	if !errors.Is(err, store.ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}

	data, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != string(garbage) {
		t.Error("corrupt file was overwritten; it must be preserved for recovery")
	}
}

func TestLoad_MergesStoredOverDefaults(t *testing.T) {
	st := newTestStore(t)

	// An old-schema document without categoryOrder or metadata.
	partial := map[string]interface{}{
		"services": []map[string]string{
			{"name": "Jellyfin", "url": "http://jellyfin.local", "category": "Media"},
		},
	}
	data, err := json.Marshal(partial)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(st.Path(), data, 0640); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	doc, _, err := st.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(doc.Services) != 1 || doc.Services[0].Name != "Jellyfin" {
		t.Errorf("stored services lost in merge: %+v", doc.Services)
	}
	if len(doc.CategoryOrder) == 0 {
		t.Error("expected default categoryOrder to fill the missing field")
	}
	if doc.Metadata.BackupCadenceMinutes == 0 {
		t.Error("expected default backup cadence to fill the missing field")
	}
}
