package safefile

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
)

// tempRootName is the directory under the output root holding staging
// directories.
const tempRootName = ".temp"

// backupSuffix is appended to a displaced item directory while a new
// version of the item is being staged.
const backupSuffix = "_back"

// Phase is the lifecycle state of a staging transaction.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStaging
	PhaseCommitting
	PhaseCommitted
	PhaseRollingBack
	PhaseRolledBack
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStaging:
		return "staging"
	case PhaseCommitting:
		return "committing"
	case PhaseCommitted:
		return "committed"
	case PhaseRollingBack:
		return "rolling back"
	case PhaseRolledBack:
		return "rolled back"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Manager stages the files of a single item in a temporary directory
// and promotes them to the item's final directory in one rename. The
// previously committed version, if any, is kept aside as a backup until
// the transaction resolves: Commit discards it, Rollback restores it.
//
// Stage may be called from several goroutines as long as the relative
// paths are distinct. Begin, Commit and Rollback are single-caller
// operations.
type Manager struct {
	outputRoot string
	itemID     model.ItemID

	mu         sync.Mutex
	phase      Phase
	tempDir    string
	finalName  string
	backupDir  string
	backupFrom string
}

// NewManager creates a Manager for one item. The transaction starts in
// PhaseIdle; call Begin before staging files.
func NewManager(outputRoot string, itemID model.ItemID) *Manager {
	return &Manager{
		outputRoot: outputRoot,
		itemID:     itemID,
		phase:      PhaseIdle,
		finalName:  itemID.String(),
	}
}

// Phase returns the current lifecycle state.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// TempDir returns the staging directory. It is empty before Begin.
func (m *Manager) TempDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempDir
}

// FinalDir returns the path the staged files will be committed to.
func (m *Manager) FinalDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filepath.Join(m.outputRoot, m.finalName)
}

// Begin creates the staging directory and moves any previously
// committed directory of this item aside as a backup. A leftover backup
// from an interrupted run is discarded first.
func (m *Manager) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseIdle {
		return goerr.New("transaction already started",
			goerr.T(model.TagFileSystem), goerr.V("phase", m.phase.String()))
	}

	tempDir := filepath.Join(m.outputRoot, tempRootName, m.itemID.String())
	if err := os.RemoveAll(tempDir); err != nil {
		return goerr.Wrap(err, "failed to clear staging directory",
			goerr.T(model.TagFileSystem), goerr.V("path", tempDir))
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create staging directory",
			goerr.T(model.TagFileSystem), goerr.V("path", tempDir))
	}

	existing, err := FindItemDir(m.outputRoot, m.itemID)
	if err != nil {
		return goerr.Wrap(err, "failed to scan output directory",
			goerr.T(model.TagFileSystem), goerr.V("path", m.outputRoot))
	}
	if existing != "" {
		backup := filepath.Join(m.outputRoot, existing+backupSuffix)
		if err := os.RemoveAll(backup); err != nil {
			return goerr.Wrap(err, "failed to clear stale backup",
				goerr.T(model.TagFileSystem), goerr.V("path", backup))
		}
		original := filepath.Join(m.outputRoot, existing)
		if err := os.Rename(original, backup); err != nil {
			return goerr.Wrap(err, "failed to back up existing item directory",
				goerr.T(model.TagFileSystem), goerr.V("path", original))
		}
		m.backupDir = backup
		m.backupFrom = original
	}

	m.tempDir = tempDir
	m.phase = PhaseStaging
	return nil
}

// Stage writes a file under the staging directory, creating parent
// directories as needed. The relative path must stay inside the
// staging directory.
func (m *Manager) Stage(relPath string, data []byte) error {
	m.mu.Lock()
	if m.phase != PhaseStaging {
		phase := m.phase
		m.mu.Unlock()
		return goerr.New("transaction is not staging",
			goerr.T(model.TagFileSystem), goerr.V("phase", phase.String()))
	}
	tempDir := m.tempDir
	m.mu.Unlock()

	dest := filepath.Join(tempDir, filepath.FromSlash(relPath))
	if !strings.HasPrefix(dest, tempDir+string(os.PathSeparator)) {
		return goerr.New("file path escapes the staging directory",
			goerr.T(model.TagFileSystem), goerr.V("path", relPath))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return goerr.Wrap(err, "failed to create directory",
			goerr.T(model.TagFileSystem), goerr.V("path", filepath.Dir(dest)))
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write file",
			goerr.T(model.TagFileSystem), goerr.V("path", dest))
	}
	return nil
}

// SetFinalName changes the directory name the staged files will be
// committed under. Only valid while staging.
func (m *Manager) SetFinalName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseStaging {
		return goerr.New("transaction is not staging",
			goerr.T(model.TagFileSystem), goerr.V("phase", m.phase.String()))
	}
	if name == "" || name != filepath.Base(name) {
		return goerr.New("invalid final directory name",
			goerr.T(model.TagFileSystem), goerr.V("name", name))
	}
	m.finalName = name
	return nil
}

// Commit promotes the staging directory to the final directory and
// discards the backup. A failed rename leaves the transaction in
// PhaseFailed with both the staging directory and the backup intact.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseStaging {
		return goerr.New("transaction is not staging",
			goerr.T(model.TagFileSystem), goerr.V("phase", m.phase.String()))
	}
	m.phase = PhaseCommitting

	final := filepath.Join(m.outputRoot, m.finalName)
	if err := os.Rename(m.tempDir, final); err != nil {
		m.phase = PhaseFailed
		return goerr.Wrap(err, "failed to commit item directory",
			goerr.T(model.TagFileSystem), goerr.V("path", final))
	}

	if m.backupDir != "" {
		// The new version is already in place. A leftover backup is
		// cleaned up on the next run.
		os.RemoveAll(m.backupDir)
		m.backupDir = ""
	}

	m.phase = PhaseCommitted
	return nil
}

// Rollback discards the staged files and restores the backup to its
// original place. A failure during restore leaves the transaction in
// PhaseFailed.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseStaging {
		return goerr.New("transaction is not staging",
			goerr.T(model.TagFileSystem), goerr.V("phase", m.phase.String()))
	}
	m.phase = PhaseRollingBack

	if err := os.RemoveAll(m.tempDir); err != nil {
		m.phase = PhaseFailed
		return goerr.Wrap(err, "failed to discard staged files",
			goerr.T(model.TagFileSystem), goerr.V("path", m.tempDir))
	}

	if m.backupDir != "" {
		if err := os.Rename(m.backupDir, m.backupFrom); err != nil {
			m.phase = PhaseFailed
			return goerr.Wrap(err, "failed to restore backup",
				goerr.T(model.TagFileSystem), goerr.V("path", m.backupDir))
		}
		m.backupDir = ""
	}

	m.phase = PhaseRolledBack
	return nil
}

// FindItemDir returns the name of the committed directory of itemID
// under root, or "" when none exists. Both the bare id and id_{name}
// forms match; backups do not.
func FindItemDir(root string, itemID model.ItemID) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	id := itemID.String()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, backupSuffix) {
			continue
		}
		if name == id || strings.HasPrefix(name, id+"_") {
			return name, nil
		}
	}
	return "", nil
}
