package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds all configuration options.
type Settings struct {
	// Output and endpoints
	OutputRoot     string `json:"output_root"`
	CatalogBaseURL string `json:"catalog_base_url"`
	StorageBaseURL string `json:"storage_base_url"`

	// Concurrency settings
	MaxConcurrentItems int `json:"max_concurrent_items"`
	MaxConcurrentFiles int `json:"max_concurrent_files"`

	// Retry settings
	DownloadMaxRetries    int     `json:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent"`

	// Behavior
	ForceRefresh     bool `json:"force_refresh"`
	SaveRawDownloads bool `json:"save_raw_downloads"`

	// Thumbnail post-processing. Off by default: thumbnails are written
	// exactly as downloaded unless these are enabled.
	ResizeThumbnail       bool `json:"resize_thumbnail"`
	ThumbnailMaxSize      int  `json:"thumbnail_max_size"`
	ConvertThumbnailToJPG bool `json:"convert_thumbnail_to_jpg"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputRoot:     filepath.Join("models", "nizima"),
		CatalogBaseURL: "https://nizima.com",
		StorageBaseURL: "https://storage.googleapis.com/market_view_useritems",

		MaxConcurrentItems: 3,
		MaxConcurrentFiles: 5,

		DownloadMaxRetries:    3,
		DownloadRetryCooldown: 3.0,
		DownloadRetryExponent: 2.0,

		ForceRefresh:     false,
		SaveRawDownloads: true,

		ResizeThumbnail:       false,
		ThumbnailMaxSize:      1000,
		ConvertThumbnailToJPG: false,
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
