package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// TempPattern names the temp file of an in-progress streaming write.
// Only files matching it are swept by CleanOldTempFiles.
const TempPattern = ".mediafs-*.tmp"

const defaultBufferSize = 256 * 1024

// Manager handles filesystem operations inside the sandbox root.
// Paths passed in are absolute and already resolved by a Resolver.
type Manager struct {
	rootDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithBufferSize(rootDir, defaultBufferSize)
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(rootDir string, bufferSize int) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox root dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Manager{
		rootDir:    filepath.Clean(rootDir),
		bufferSize: bufferSize,
	}, nil
}

// RootDir returns the sandbox root directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// CreateDirectory creates path and any missing ancestors
func (m *Manager) CreateDirectory(path string) (domain.Status, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return domain.StatusExists, nil
		}
		return "", domain.NewWriteError(domain.OpCreateDirectory, path, domain.ErrNotDirectory)
	}
	if !os.IsNotExist(err) {
		return "", domain.NewWriteError(domain.OpCreateDirectory, path, err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", domain.NewWriteError(domain.OpCreateDirectory, path, err)
	}
	return domain.StatusCreated, nil
}

// DeleteDirectory removes path and everything below it. A regular file at
// path is removed too. Entries that vanish during removal are not an error.
func (m *Manager) DeleteDirectory(path string) (domain.Status, error) {
	if filepath.Clean(path) == m.rootDir {
		return "", domain.NewValidationError(domain.OpDeleteDirectory, path, domain.ErrRootProtected)
	}

	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return domain.StatusNotFound, nil
		}
		return "", domain.NewWriteError(domain.OpDeleteDirectory, path, err)
	}

	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return "", domain.NewWriteError(domain.OpDeleteDirectory, path, err)
	}
	return domain.StatusDeleted, nil
}

// DeleteFile removes a regular file. Anything else reports not found.
func (m *Manager) DeleteFile(path string) (domain.Status, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusNotFound, nil
		}
		return "", domain.NewWriteError(domain.OpDeleteFile, path, err)
	}
	if !info.Mode().IsRegular() {
		return domain.StatusNotFound, nil
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.StatusNotFound, nil
		}
		return "", domain.NewWriteError(domain.OpDeleteFile, path, err)
	}
	return domain.StatusDeleted, nil
}

// CleanOldTempFiles removes temp files left by interrupted streaming writes
// that are older than olderThan. Files not named by TempPattern are never touched.
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	var count atomic.Int64
	threshold := time.Now().Add(-olderThan)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, m.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries may disappear while other requests run
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(TempPattern, d.Name()); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count.Add(1)
			}
		}
		return nil
	})
	return int(count.Load()), err
}
