package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/handiism/nizima-downloader/internal/safefile"
)

// LayoutVersion identifies the on-disk layout produced by this tool.
// Committed items carrying an older version are downloaded again.
const LayoutVersion = "v4"

// versionInfo is the content of an item's version.json.
type versionInfo struct {
	Version   string `json:"version"`
	UpdatedAt string `json:"updated_at"`
	ItemID    string `json:"item_id"`
	ModelName string `json:"model_name,omitempty"`
}

// CheckLayoutVersion reports whether itemID already has a committed
// directory whose version.json matches the current layout version. A
// missing or unreadable version.json counts as outdated.
func CheckLayoutVersion(outputRoot string, itemID model.ItemID) bool {
	dir, err := safefile.FindItemDir(outputRoot, itemID)
	if err != nil || dir == "" {
		return false
	}

	data, err := os.ReadFile(filepath.Join(outputRoot, dir, "version.json"))
	if err != nil {
		return false
	}

	var info versionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return false
	}
	return info.Version == LayoutVersion
}
