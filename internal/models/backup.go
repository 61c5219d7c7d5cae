package models

import "time"

// BackupInfo summarizes one snapshot file for listing.
type BackupInfo struct {
	Filename     string    `json:"filename"`
	CreatedAt    time.Time `json:"created_at"`
	ServiceCount int       `json:"service_count"`
}

// RestoreResult describes the outcome of restoring a snapshot.
type RestoreResult struct {
	Success       bool   `json:"success"`
	ServicesCount int    `json:"services_count"`
	SafetyBackup  string `json:"safety_backup,omitempty"`
}

// CreateBackupRequest is the optional body for manual backup creation.
type CreateBackupRequest struct {
	Name string `json:"name"`
}
