package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.MaxConcurrentItems != 3 {
		t.Errorf("MaxConcurrentItems = %d, want 3", s.MaxConcurrentItems)
	}
	if s.MaxConcurrentFiles != 5 {
		t.Errorf("MaxConcurrentFiles = %d, want 5", s.MaxConcurrentFiles)
	}
	if s.DownloadMaxRetries != 3 {
		t.Errorf("DownloadMaxRetries = %d, want 3", s.DownloadMaxRetries)
	}
	if s.DownloadRetryCooldown != 3.0 || s.DownloadRetryExponent != 2.0 {
		t.Errorf("retry schedule = %v^%v, want 3.0 base with exponent 2.0",
			s.DownloadRetryCooldown, s.DownloadRetryExponent)
	}
	if s.ResizeThumbnail || s.ConvertThumbnailToJPG {
		t.Error("thumbnail post-processing must be off by default")
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.MaxConcurrentItems != 3 {
			t.Errorf("expected defaults, got MaxConcurrentItems=%d", s.MaxConcurrentItems)
		}
	})

	t.Run("partial file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{"max_concurrent_items": 1, "output_root": "/data/nizima"}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		s, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.MaxConcurrentItems != 1 {
			t.Errorf("MaxConcurrentItems = %d, want 1", s.MaxConcurrentItems)
		}
		if s.OutputRoot != "/data/nizima" {
			t.Errorf("OutputRoot = %q, want /data/nizima", s.OutputRoot)
		}
		// Untouched fields keep defaults.
		if s.MaxConcurrentFiles != 5 {
			t.Errorf("MaxConcurrentFiles = %d, want 5", s.MaxConcurrentFiles)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}
