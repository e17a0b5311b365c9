package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// Resolver confines caller-supplied paths to the sandbox root
type Resolver struct {
	root string // absolute, symlinks resolved
}

// Ensure Resolver implements port.PathResolver
var _ port.PathResolver = (*Resolver)(nil)

// NewResolver creates a resolver rooted at rootDir, creating it when missing
func NewResolver(rootDir string) (*Resolver, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("sandbox root is empty")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to eval symlinks for sandbox root: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q is not a directory", resolved)
	}

	return &Resolver{root: resolved}, nil
}

// Root returns the sandbox root directory
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins relative onto the root. A leading separator is treated as
// relative to the root; ".." segments that climb above it are rejected.
func (r *Resolver) Resolve(relative string) (string, error) {
	if relative == "" {
		return "", domain.NewValidationError("resolve", "", domain.ErrEmptyField)
	}

	resolved := filepath.Join(r.root, relative)
	if !r.Contains(resolved) {
		return "", domain.NewValidationError("resolve", relative, domain.ErrPathOutsideSandbox)
	}
	return resolved, nil
}

// ResolveFile resolves dir/name. The result must lie strictly below the
// root, and name must not collapse onto dir or one of its ancestors.
func (r *Resolver) ResolveFile(dir, name string) (string, error) {
	if dir == "" || name == "" {
		return "", domain.NewValidationError("resolve", filepath.Join(dir, name), domain.ErrEmptyField)
	}

	resolved := filepath.Join(r.root, dir, name)
	if resolved == r.root || !r.Contains(resolved) {
		return "", domain.NewValidationError("resolve", filepath.Join(dir, name), domain.ErrPathOutsideSandbox)
	}
	if isWithin(resolved, filepath.Join(r.root, dir)) {
		return "", domain.NewValidationError("resolve", filepath.Join(dir, name), domain.ErrInvalidFileName)
	}
	return resolved, nil
}

// Contains reports whether path is the root or below it
func (r *Resolver) Contains(path string) bool {
	return isWithin(r.root, path)
}

func isWithin(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}

// isBelow reports whether path is strictly below root
func isBelow(root, path string) bool {
	return path != root && isWithin(root, path)
}
