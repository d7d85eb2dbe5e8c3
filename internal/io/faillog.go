package ioutils

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/handiism/nizima-downloader/internal/model"
)

// FailureLog appends download failure records to a text file.
//
// The log lives next to the downloaded items and survives across runs,
// so failed downloads can be retried later by re-running the affected
// item IDs. Append is safe for concurrent use.
type FailureLog struct {
	mu   sync.Mutex
	path string
}

// NewFailureLog creates a FailureLog writing to the given path. The
// file is created on the first Append.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Path returns the log file path.
func (l *FailureLog) Path() string {
	return l.path
}

// Append writes one failure record to the log.
func (l *FailureLog) Append(rec model.FailureRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := EnsureDir(filepath.Dir(l.path)); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(rec.Format())
	return err
}
