package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

// WriteArtifact writes content to dir/fileName, creating dir when needed.
// An existing file is truncated.
func (m *Manager) WriteArtifact(dir, fileName, content string) (string, error) {
	if _, err := m.CreateDirectory(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", domain.NewWriteError(domain.OpWriteArtifact, path, err)
	}
	return path, nil
}

// WriteStream copies reader into path. Data goes to a uniquely named temp
// file next to path first and is renamed into place once fully written; on
// any failure the temp file is removed and path is left untouched.
func (m *Manager) WriteStream(path string, reader io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to create parent dir: %w", err))
	}

	f, err := os.CreateTemp(filepath.Dir(path), TempPattern)
	if err != nil {
		return 0, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to create temp file: %w", err))
	}
	tempPath := f.Name()

	src := &trackingReader{r: reader}
	buf := make([]byte, m.bufferSize)
	// struct wrapper hides (*os.File).ReadFrom so buf is used
	written, err := io.CopyBuffer(struct{ io.Writer }{f}, src, buf)
	if err != nil {
		f.Close()
		os.Remove(tempPath)
		if src.err != nil {
			return written, domain.NewNetworkError(domain.OpFetchToFile, path, fmt.Errorf("stream interrupted: %w", src.err))
		}
		return written, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to write file: %w", err))
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return written, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to close file: %w", err))
	}
	// CreateTemp opens with 0600
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return written, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to chmod temp file: %w", err))
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return written, domain.NewWriteError(domain.OpFetchToFile, path, fmt.Errorf("failed to rename temp file: %w", err))
	}

	return written, nil
}

// trackingReader remembers the read-side error so a broken source can be
// told apart from a failed disk write.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
