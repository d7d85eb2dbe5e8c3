// Package config provides configuration management for nizima-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - The two concurrency limits (items, files per item) that the
//     download pipeline consumes as explicit constructor parameters
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to models/nizima
//	// 3 items / 5 files per item in parallel
//	// 1 initial attempt + 3 retries, 3s/6s/12s backoff
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.OutputRoot = "/data/nizima"
//	err := settings.Save("/path/to/config.json")
package config
