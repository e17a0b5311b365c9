package fetcher

import (
	"context"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// FetchRecorder receives measurements of completed fetches
type FetchRecorder interface {
	RecordFetch(transport string, bytes int64, d time.Duration)
}

// Fetcher downloads remote files into the sandbox
type Fetcher struct {
	resolver port.PathResolver
	fs       port.FileSystem
	selector port.TransportSelector
	recorder FetchRecorder
	logger   *zap.Logger
}

// New creates a new Fetcher. recorder may be nil.
func New(
	resolver port.PathResolver,
	fs port.FileSystem,
	selector port.TransportSelector,
	recorder FetchRecorder,
	logger *zap.Logger,
) *Fetcher {
	return &Fetcher{
		resolver: resolver,
		fs:       fs,
		selector: selector,
		recorder: recorder,
		logger:   logger,
	}
}

// FetchToFile downloads req.SourceURL into TargetDirectory/DestinationFileName.
// The destination is only written after a 2xx response, and a failed
// stream leaves no partial file behind.
func (f *Fetcher) FetchToFile(ctx context.Context, req domain.DownloadRequest) (*domain.OpResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dir, err := f.resolver.Resolve(req.TargetDirectory)
	if err != nil {
		return nil, err
	}
	path, err := f.resolver.ResolveFile(req.TargetDirectory, req.DestinationFileName)
	if err != nil {
		return nil, err
	}

	if _, err := f.fs.CreateDirectory(dir); err != nil {
		return nil, err
	}

	transport := f.selector.Select(req.SourceURL)
	start := time.Now()

	f.logger.Debug("fetching remote file",
		zap.String("url", req.SourceURL),
		zap.String("path", path),
		zap.String("transport", transport.Name()),
		zap.Stringer("choice", transport.Choice()))

	content, err := transport.Fetch(ctx, req.SourceURL)
	if err != nil {
		return nil, err
	}
	defer content.Body.Close()

	written, err := f.fs.WriteStream(path, content.Body)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if f.recorder != nil {
		f.recorder.RecordFetch(transport.Name(), written, elapsed)
	}

	contentType := content.ContentType
	if mtype, err := mimetype.DetectFile(path); err == nil {
		contentType = mtype.String()
	}

	f.logger.Info("remote file saved",
		zap.String("url", req.SourceURL),
		zap.String("path", path),
		zap.String("transport", transport.Name()),
		zap.Int64("size", written),
		zap.String("content_type", contentType),
		zap.Duration("elapsed", elapsed))

	return &domain.OpResult{
		Op:          domain.OpFetchToFile,
		Path:        path,
		Status:      domain.StatusWritten,
		Bytes:       written,
		ContentType: contentType,
		Transport:   transport.Name(),
	}, nil
}
