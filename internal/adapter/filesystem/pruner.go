package filesystem

import (
	"os"
	"path/filepath"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

// PruneEmptyAncestors walks up from a just-deleted path and removes each
// parent while it is empty. It stops at the first non-empty or missing
// parent, at the sandbox root, or when Dir stops changing. The root itself
// is never removed.
func (m *Manager) PruneEmptyAncestors(deleted string) ([]string, error) {
	var removed []string

	current := filepath.Clean(deleted)
	for {
		parent := filepath.Dir(current)
		if parent == current || !isBelow(m.rootDir, parent) {
			return removed, nil
		}

		entries, err := os.ReadDir(parent)
		if err != nil {
			if os.IsNotExist(err) {
				return removed, nil
			}
			return removed, domain.NewWriteError(domain.OpDeleteDirectoryPrune, parent, err)
		}
		if len(entries) > 0 {
			return removed, nil
		}

		// os.Remove refuses non-empty directories, so a file created
		// since ReadDir keeps the parent in place.
		if err := os.Remove(parent); err != nil {
			if os.IsNotExist(err) || isNotEmpty(parent) {
				return removed, nil
			}
			return removed, domain.NewWriteError(domain.OpDeleteDirectoryPrune, parent, err)
		}

		removed = append(removed, parent)
		current = parent
	}
}

func isNotEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
