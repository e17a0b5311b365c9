package domain

import "time"

// Status is the outcome of a successful operation
type Status string

const (
	StatusCreated  Status = "created"
	StatusExists   Status = "exists"
	StatusDeleted  Status = "deleted"
	StatusNotFound Status = "not_found"
	StatusWritten  Status = "written"
)

// Operation names, used in logs, metrics and the journal
const (
	OpDeleteFile           = "delete_file"
	OpCreateDirectory      = "create_directory"
	OpDeleteDirectory      = "delete_directory"
	OpDeleteDirectoryPrune = "delete_directory_prune"
	OpWriteArtifact        = "write_artifact"
	OpFetchToFile          = "fetch_to_file"
)

// OpResult represents the result of a core operation
type OpResult struct {
	Op     string
	Path   string
	Status Status

	// Pruned lists ancestors removed after a delete, nearest first
	Pruned []string

	// Fetch details
	Bytes       int64
	ContentType string
	Transport   string
}

// JournalEntry is a recorded operation
type JournalEntry struct {
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Path       string    `json:"path"`
	Status     string    `json:"status"`
	Transport  string    `json:"transport,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
