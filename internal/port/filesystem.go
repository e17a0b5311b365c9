package port

import (
	"io"
	"time"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  `json:"total"`    // Total disk space in bytes
	Used    uint64  `json:"used"`     // Used disk space in bytes
	Free    uint64  `json:"free"`     // Free disk space in bytes
	UsedPct float64 `json:"used_pct"` // Used percentage (0-100)
}

// PathResolver maps caller-supplied relative paths onto the sandbox root
type PathResolver interface {
	// Root returns the absolute sandbox root
	Root() string

	// Resolve joins relative onto the root and rejects results outside it
	Resolve(relative string) (string, error)

	// ResolveFile resolves dir/name under the same rules
	ResolveFile(dir, name string) (string, error)
}

// FileSystem defines the interface for filesystem operations on absolute,
// already-resolved paths
type FileSystem interface {
	// CreateDirectory creates path and missing ancestors.
	// Returns StatusCreated or StatusExists.
	CreateDirectory(path string) (domain.Status, error)

	// DeleteDirectory removes path recursively, whatever its type.
	// Returns StatusDeleted or StatusNotFound.
	DeleteDirectory(path string) (domain.Status, error)

	// DeleteFile unlinks a regular file.
	// Returns StatusDeleted or StatusNotFound.
	DeleteFile(path string) (domain.Status, error)

	// PruneEmptyAncestors removes now-empty parents of deleted, nearest first
	PruneEmptyAncestors(deleted string) ([]string, error)

	// WriteArtifact writes content to dir/fileName, replacing any existing file
	WriteArtifact(dir, fileName, content string) (string, error)

	// WriteStream streams reader into path via a temp file
	// Returns: bytes written, error
	WriteStream(path string, reader io.Reader) (int64, error)

	// GetDiskUsage returns disk usage statistics
	GetDiskUsage() (*DiskUsage, error)

	// CleanOldTempFiles removes streaming temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
