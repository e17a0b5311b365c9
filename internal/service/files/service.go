package files

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
	"github.com/vertextoedge/mediafs-sidecar/internal/util/throttle"
)

// journalWarnInterval bounds how often journal failures are logged
const journalWarnInterval = 30 * time.Second

// Downloader fetches remote files into the sandbox
type Downloader interface {
	FetchToFile(ctx context.Context, req domain.DownloadRequest) (*domain.OpResult, error)
}

// OperationRecorder counts finished operations
type OperationRecorder interface {
	RecordOperation(op, status string)
}

// Service is the entry point for every sandboxed file operation.
// It validates input, resolves paths and records each outcome.
type Service struct {
	resolver   port.PathResolver
	fs         port.FileSystem
	downloader Downloader
	journal    port.JournalRepository
	recorder   OperationRecorder
	logger     *zap.Logger
	journalLog *throttle.Throttle
}

// NewService creates a new Service. recorder may be nil.
func NewService(
	resolver port.PathResolver,
	fs port.FileSystem,
	downloader Downloader,
	journal port.JournalRepository,
	recorder OperationRecorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		resolver:   resolver,
		fs:         fs,
		downloader: downloader,
		journal:    journal,
		recorder:   recorder,
		logger:     logger,
		journalLog: throttle.New(journalWarnInterval),
	}
}

// DeleteFile removes directory/fileName
func (s *Service) DeleteFile(ctx context.Context, directory, fileName string) (*domain.OpResult, error) {
	start := time.Now()
	result, err := s.deleteFile(directory, fileName)
	s.record(ctx, domain.OpDeleteFile, result, err, start)
	return result, err
}

func (s *Service) deleteFile(directory, fileName string) (*domain.OpResult, error) {
	if directory == "" {
		return nil, domain.MissingField(domain.OpDeleteFile, "dirName")
	}
	if fileName == "" {
		return nil, domain.MissingField(domain.OpDeleteFile, "fileName")
	}

	path, err := s.resolver.ResolveFile(directory, fileName)
	if err != nil {
		return nil, err
	}

	status, err := s.fs.DeleteFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.OpResult{Op: domain.OpDeleteFile, Path: path, Status: status}, nil
}

// CreateDirectory creates directory and any missing ancestors
func (s *Service) CreateDirectory(ctx context.Context, directory string) (*domain.OpResult, error) {
	start := time.Now()
	result, err := s.createDirectory(directory)
	s.record(ctx, domain.OpCreateDirectory, result, err, start)
	return result, err
}

func (s *Service) createDirectory(directory string) (*domain.OpResult, error) {
	if directory == "" {
		return nil, domain.MissingField(domain.OpCreateDirectory, "dirName")
	}

	path, err := s.resolver.Resolve(directory)
	if err != nil {
		return nil, err
	}

	status, err := s.fs.CreateDirectory(path)
	if err != nil {
		return nil, err
	}
	return &domain.OpResult{Op: domain.OpCreateDirectory, Path: path, Status: status}, nil
}

// DeleteDirectory removes directory recursively
func (s *Service) DeleteDirectory(ctx context.Context, directory string) (*domain.OpResult, error) {
	start := time.Now()
	result, err := s.deleteDirectory(domain.OpDeleteDirectory, directory)
	s.record(ctx, domain.OpDeleteDirectory, result, err, start)
	return result, err
}

// DeleteDirectoryAndPrune removes directory recursively, then removes
// every ancestor left empty by the deletion, stopping at the sandbox root
func (s *Service) DeleteDirectoryAndPrune(ctx context.Context, directory string) (*domain.OpResult, error) {
	start := time.Now()

	result, err := s.deleteDirectory(domain.OpDeleteDirectoryPrune, directory)
	if err == nil && result.Status == domain.StatusDeleted {
		pruned, pruneErr := s.fs.PruneEmptyAncestors(result.Path)
		result.Pruned = pruned
		if pruneErr != nil {
			// The directory itself is already gone
			err = pruneErr
		}
	}

	s.record(ctx, domain.OpDeleteDirectoryPrune, result, err, start)
	return result, err
}

func (s *Service) deleteDirectory(op, directory string) (*domain.OpResult, error) {
	if directory == "" {
		return nil, domain.MissingField(op, "dirName")
	}

	path, err := s.resolver.Resolve(directory)
	if err != nil {
		return nil, err
	}
	if path == s.resolver.Root() {
		return nil, domain.NewValidationError(op, directory, domain.ErrRootProtected)
	}

	status, err := s.fs.DeleteDirectory(path)
	if err != nil {
		return nil, err
	}
	return &domain.OpResult{Op: op, Path: path, Status: status}, nil
}

// WriteArtifact writes content to directory/fileName, replacing any existing file
func (s *Service) WriteArtifact(ctx context.Context, directory, fileName, content string) (*domain.OpResult, error) {
	start := time.Now()
	result, err := s.writeArtifact(directory, fileName, content)
	s.record(ctx, domain.OpWriteArtifact, result, err, start)
	return result, err
}

func (s *Service) writeArtifact(directory, fileName, content string) (*domain.OpResult, error) {
	switch {
	case directory == "":
		return nil, domain.MissingField(domain.OpWriteArtifact, "dirName")
	case fileName == "":
		return nil, domain.MissingField(domain.OpWriteArtifact, "fileName")
	case content == "":
		return nil, domain.MissingField(domain.OpWriteArtifact, "content")
	}

	dir, err := s.resolver.Resolve(directory)
	if err != nil {
		return nil, err
	}
	// Checks that fileName does not climb out of the sandbox
	if _, err := s.resolver.ResolveFile(directory, fileName); err != nil {
		return nil, err
	}

	path, err := s.fs.WriteArtifact(dir, fileName, content)
	if err != nil {
		return nil, err
	}
	return &domain.OpResult{
		Op:     domain.OpWriteArtifact,
		Path:   path,
		Status: domain.StatusWritten,
		Bytes:  int64(len(content)),
	}, nil
}

// FetchToFile downloads a remote file into the sandbox. The download is
// detached from ctx cancellation: once started it runs to completion or
// failure.
func (s *Service) FetchToFile(ctx context.Context, req domain.DownloadRequest) (*domain.OpResult, error) {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	var result *domain.OpResult
	err := fetchFieldsPresent(req)
	if err == nil {
		result, err = s.downloader.FetchToFile(ctx, req)
	}

	s.record(ctx, domain.OpFetchToFile, result, err, start)
	return result, err
}

func fetchFieldsPresent(req domain.DownloadRequest) error {
	switch {
	case req.TargetDirectory == "":
		return domain.MissingField(domain.OpFetchToFile, "dirName")
	case req.SourceURL == "":
		return domain.MissingField(domain.OpFetchToFile, "imageUrl")
	case req.DestinationFileName == "":
		return domain.MissingField(domain.OpFetchToFile, "imageName")
	}
	return nil
}

// RecentOperations returns the newest journal entries.
// A non-positive limit uses the store default.
func (s *Service) RecentOperations(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	return s.journal.Recent(ctx, limit)
}

// Stats returns disk usage of the filesystem holding the sandbox
func (s *Service) Stats() (*port.DiskUsage, error) {
	return s.fs.GetDiskUsage()
}

// Root returns the sandbox root
func (s *Service) Root() string {
	return s.resolver.Root()
}

// Health checks the journal store
func (s *Service) Health(ctx context.Context) error {
	return s.journal.Ping(ctx)
}

// record writes the outcome to the journal and metrics. Failures here are
// logged and never change the operation result.
func (s *Service) record(ctx context.Context, op string, result *domain.OpResult, opErr error, start time.Time) {
	elapsed := time.Since(start)
	ctx = context.WithoutCancel(ctx)

	entry := &domain.JournalEntry{
		Op:         op,
		DurationMs: elapsed.Milliseconds(),
	}

	if opErr != nil {
		kind := domain.KindOf(opErr)
		if kind == "" {
			kind = domain.KindWrite
		}
		entry.Status = string(kind)
		entry.Error = opErr.Error()

		var oe *domain.OpError
		if errors.As(opErr, &oe) {
			entry.Path = oe.Path
		}

		fields := []zap.Field{
			zap.String("op", op),
			zap.String("kind", string(kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(opErr),
		}
		if kind == domain.KindValidation {
			s.logger.Debug("operation rejected", fields...)
		} else {
			s.logger.Warn("operation failed", fields...)
		}
	} else if result != nil {
		entry.Path = result.Path
		entry.Status = string(result.Status)
		entry.Transport = result.Transport
		entry.Bytes = result.Bytes

		s.logger.Info("operation completed",
			zap.String("op", op),
			zap.String("path", result.Path),
			zap.String("status", string(result.Status)),
			zap.Strings("pruned", result.Pruned),
			zap.Duration("elapsed", elapsed))
	}

	if s.recorder != nil {
		s.recorder.RecordOperation(op, entry.Status)
	}

	if err := s.journal.Record(ctx, entry); err != nil {
		if ok, dropped := s.journalLog.Allow(); ok {
			s.logger.Warn("failed to record operation",
				zap.String("op", op),
				zap.Int("suppressed", dropped),
				zap.Error(err))
		}
	}
}
