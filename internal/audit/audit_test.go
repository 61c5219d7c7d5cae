package audit_test

import (
	"testing"

	"github.com/awidyan/homeboard/internal/audit"
)

func TestLogAndGetLogs(t *testing.T) {
	svc, err := audit.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open audit service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	svc.Log(audit.ActionSaveConfig, "192.168.1.10", map[string]interface{}{
		"service_count": 3,
	})
	svc.Log(audit.ActionCreateBackup, "192.168.1.10", map[string]interface{}{
		"filename": "backup-20260829-120000.000000000.json",
	})

	entries, err := svc.GetLogs(50, 0)
	if err != nil {
		t.Fatalf("failed to get logs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	for _, entry := range entries {
		if entry.ID == "" {
			t.Error("expected entry ID to be set")
		}
		if entry.ClientIP != "192.168.1.10" {
			t.Errorf("expected client IP to be recorded, got %q", entry.ClientIP)
		}
		if entry.CreatedAt == "" {
			t.Error("expected created_at to be set")
		}
	}
}

func TestGetLogs_Pagination(t *testing.T) {
	svc, err := audit.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open audit service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	for i := 0; i < 5; i++ {
		svc.Log(audit.ActionSaveConfig, "10.0.0.1", nil)
	}

	page, err := svc.GetLogs(2, 0)
	if err != nil {
		t.Fatalf("failed to get first page: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected 2 entries on first page, got %d", len(page))
	}

	rest, err := svc.GetLogs(10, 2)
	if err != nil {
		t.Fatalf("failed to get second page: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("expected 3 remaining entries, got %d", len(rest))
	}
}

func TestGetLogs_EmptyIsSliceNotNil(t *testing.T) {
	svc, err := audit.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open audit service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	entries, err := svc.GetLogs(10, 0)
	if err != nil {
		t.Fatalf("failed to get logs: %v", err)
	}
	if entries == nil {
		t.Error("expected empty slice, got nil")
	}
}
