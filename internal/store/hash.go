package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/awidyan/homeboard/internal/models"
)

// ContentHash computes a stable hash over the user-data subset of the
// document: services, categoryOrder, collapsedCategories, gridColumns,
// theme, and settings. Bookkeeping metadata is excluded so that no-op saves
// hash identically and redundant backups are suppressed. encoding/json
// serializes map keys in sorted order, which makes the hash independent of
// key insertion order in settings.
func ContentHash(doc *models.Dashboard) string {
	subset := map[string]interface{}{
		"services":            doc.Services,
		"categoryOrder":       doc.CategoryOrder,
		"collapsedCategories": doc.CollapsedCategories,
		"gridColumns":         doc.GridColumns,
		"theme":               doc.Theme,
		"settings":            doc.Settings,
	}

	data, err := json.Marshal(subset)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
