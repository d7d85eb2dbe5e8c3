package ioutils

import (
	"os"
	"regexp"
	"strings"
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// This function ensures directory names derived from model names are valid
// across different operating systems, particularly Windows which has the
// most restrictive naming rules.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Model: v1/2")         // Returns "Model_ v1_2"
//	SanitizeFileName("Hiyori...")           // Returns "Hiyori"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	// Replace invalid path/file characters with underscore
	// Characters: < > : " / \ | ? * and control characters (0x00-0x1f)
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	name = invalidChars.ReplaceAllString(name, "_")

	// Remove trailing dots (Windows doesn't allow filenames ending with dots)
	name = regexp.MustCompile(`\.+$`).ReplaceAllString(name, "")

	// Replace multiple whitespace with single space for cleaner names
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	// Remove trailing whitespace
	name = strings.TrimRight(name, " ")

	return name
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir("models/nizima/.temp")
//	// Creates models, models/nizima, and models/nizima/.temp if needed
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
