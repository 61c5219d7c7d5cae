// Package models defines data models for the dashboard document and backups.
package models

// Service represents one catalogued link on the dashboard.
type Service struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Metadata carries synchronization and backup bookkeeping for a dashboard
// document. LastModified and LastBackup are RFC3339 timestamps.
type Metadata struct {
	LastModified         string  `json:"lastModified"`
	BackupEnabled        bool    `json:"backupEnabled"`
	LastBackup           *string `json:"lastBackup"`
	BackupCadenceMinutes int     `json:"backupCadenceMinutes"`
	ConfigHash           string  `json:"configHash,omitempty"`
	RestoredFrom         string  `json:"restoredFrom,omitempty"`
	RestoredAt           string  `json:"restoredAt,omitempty"`
}

// Dashboard is the single configuration document the server persists.
// Services order is significant within a category; CategoryOrder defines
// display order. Colors and Settings are opaque to the sync subsystem.
type Dashboard struct {
	Services            []Service              `json:"services"`
	CategoryOrder       []string               `json:"categoryOrder"`
	CollapsedCategories []string               `json:"collapsedCategories"`
	GridColumns         int                    `json:"gridColumns"`
	Theme               string                 `json:"theme"`
	Colors              map[string]string      `json:"colors"`
	Settings            map[string]interface{} `json:"settings"`
	Metadata            Metadata               `json:"metadata"`
}

// Cadence bounds for automatic backups, in minutes.
const (
	MinBackupCadenceMinutes = 5
	MaxBackupCadenceMinutes = 1440
)

// DefaultDashboard returns the document used when nothing exists on disk
// yet, and the base that stored documents are merged over so that fields
// introduced by newer schema versions get sensible values.
func DefaultDashboard() *Dashboard {
	return &Dashboard{
		Services:            []Service{},
		CategoryOrder:       []string{"Media", "Monitoring", "Network"},
		CollapsedCategories: []string{},
		GridColumns:         4,
		Theme:               "dark",
		Colors: map[string]string{
			"accent":     "#7aa2f7",
			"background": "#1a1b26",
		},
		Settings: map[string]interface{}{},
		Metadata: Metadata{
			BackupEnabled:        true,
			BackupCadenceMinutes: 60,
		},
	}
}

// ClampCadence normalizes the backup cadence into its allowed range.
func ClampCadence(minutes int) int {
	if minutes < MinBackupCadenceMinutes {
		return MinBackupCadenceMinutes
	}
	if minutes > MaxBackupCadenceMinutes {
		return MaxBackupCadenceMinutes
	}
	return minutes
}
