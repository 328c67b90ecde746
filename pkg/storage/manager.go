package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manager owns one destination directory and handles file writes for it.
// Files that already exist are detected so an interrupted run can be repeated
// without re-downloading everything.
type Manager struct {
	dir   string
	saved map[string]bool
	mu    sync.RWMutex
}

// NewManager creates a manager for the given directory, creating it if needed
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	m := &Manager{
		dir:   dir,
		saved: make(map[string]bool),
	}
	if err := m.scanExistingFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

// scanExistingFiles records files already present in the directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", m.dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			m.saved[entry.Name()] = true
		}
	}
	return nil
}

// IsDownloaded reports whether a file with the given name is already present
func (m *Manager) IsDownloaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saved[name]
}

// SaveFile writes the reader's content to name inside the managed directory.
// The write goes through a temporary file and an atomic rename so a crashed
// download never leaves a truncated file behind.
func (m *Manager) SaveFile(r io.Reader, name string) error {
	filename := filepath.Join(m.dir, name)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()

	return nil
}

// Dir returns the managed directory path
func (m *Manager) Dir() string {
	return m.dir
}

// SavedCount returns the number of files known to the manager
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
