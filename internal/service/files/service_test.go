package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/adapter/filesystem"
	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

type fakeJournal struct {
	mu      sync.Mutex
	entries []*domain.JournalEntry
	err     error
}

func (j *fakeJournal) Record(ctx context.Context, entry *domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, entry)
	return nil
}

func (j *fakeJournal) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*domain.JournalEntry, 0, len(j.entries))
	for i := len(j.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}

func (j *fakeJournal) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

func (j *fakeJournal) Ping(ctx context.Context) error {
	return j.err
}

func (j *fakeJournal) last(t *testing.T) *domain.JournalEntry {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	require.NotEmpty(t, j.entries)
	return j.entries[len(j.entries)-1]
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRecorder) RecordOperation(op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+status)
}

type fakeDownloader struct {
	calls  int
	ctxErr error
	result *domain.OpResult
	err    error
}

func (d *fakeDownloader) FetchToFile(ctx context.Context, req domain.DownloadRequest) (*domain.OpResult, error) {
	d.calls++
	d.ctxErr = ctx.Err()
	return d.result, d.err
}

type fixture struct {
	svc        *Service
	root       string
	journal    *fakeJournal
	recorder   *fakeRecorder
	downloader *fakeDownloader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	resolver, err := filesystem.NewResolver(t.TempDir())
	require.NoError(t, err)
	fs, err := filesystem.NewManager(resolver.Root())
	require.NoError(t, err)

	fx := &fixture{
		root:       resolver.Root(),
		journal:    &fakeJournal{},
		recorder:   &fakeRecorder{},
		downloader: &fakeDownloader{},
	}
	fx.svc = NewService(resolver, fs, fx.downloader, fx.journal, fx.recorder, zap.NewNop())
	return fx
}

func (fx *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{fx.root}, parts...)...)
}

func TestService_CreateDirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.svc.CreateDirectory(ctx, "movies/a/b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, result.Status)
	assert.Equal(t, fx.path("movies", "a", "b"), result.Path)
	assert.DirExists(t, result.Path)

	result, err = fx.svc.CreateDirectory(ctx, "movies/a/b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExists, result.Status)

	assert.Equal(t, []string{
		"create_directory:created",
		"create_directory:exists",
	}, fx.recorder.calls)
	entry := fx.journal.last(t)
	assert.Equal(t, domain.OpCreateDirectory, entry.Op)
	assert.Equal(t, "exists", entry.Status)
	assert.Empty(t, entry.Error)
}

func TestService_DeleteFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(fx.path("movies", "a"), 0755))
	require.NoError(t, os.WriteFile(fx.path("movies", "a", "a.nfo"), []byte("x"), 0644))

	result, err := fx.svc.DeleteFile(ctx, "movies/a", "a.nfo")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, result.Status)
	assert.NoFileExists(t, fx.path("movies", "a", "a.nfo"))
	assert.DirExists(t, fx.path("movies", "a"))

	result, err = fx.svc.DeleteFile(ctx, "movies/a", "a.nfo")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, result.Status)
}

func TestService_DeleteDirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(fx.path("movies", "a", "extras"), 0755))
	require.NoError(t, os.WriteFile(fx.path("movies", "a", "extras", "x.mp4"), []byte("x"), 0644))

	result, err := fx.svc.DeleteDirectory(ctx, "movies/a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, result.Status)
	assert.NoDirExists(t, fx.path("movies", "a"))
	assert.DirExists(t, fx.path("movies"), "plain delete keeps empty parents")

	result, err = fx.svc.DeleteDirectory(ctx, "movies/a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, result.Status)
}

func TestService_DeleteDirectoryAndPrune(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// movies/a/b is the only content under movies; library holds a sibling
	require.NoError(t, os.MkdirAll(fx.path("movies", "a", "b"), 0755))
	require.NoError(t, os.MkdirAll(fx.path("library", "x"), 0755))

	result, err := fx.svc.DeleteDirectoryAndPrune(ctx, "movies/a/b")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, result.Status)
	assert.Equal(t, []string{fx.path("movies", "a"), fx.path("movies")}, result.Pruned)

	assert.NoDirExists(t, fx.path("movies"))
	assert.DirExists(t, fx.path("library", "x"))
	assert.DirExists(t, fx.root)
}

func TestService_DeleteDirectoryAndPrune_StopsAtNonEmptyParent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(fx.path("movies", "a", "b"), 0755))
	require.NoError(t, os.WriteFile(fx.path("movies", "keep.txt"), []byte("x"), 0644))

	result, err := fx.svc.DeleteDirectoryAndPrune(ctx, "movies/a/b")
	require.NoError(t, err)
	assert.Equal(t, []string{fx.path("movies", "a")}, result.Pruned)
	assert.FileExists(t, fx.path("movies", "keep.txt"))
}

func TestService_DeleteDirectoryAndPrune_Missing(t *testing.T) {
	fx := newFixture(t)

	result, err := fx.svc.DeleteDirectoryAndPrune(context.Background(), "nothing/here")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, result.Status)
	assert.Empty(t, result.Pruned)
}

func TestService_DeleteDirectory_PathIsAFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(fx.path("movies"), 0755))
	require.NoError(t, os.WriteFile(fx.path("movies", "a.jpg"), []byte("x"), 0644))

	result, err := fx.svc.DeleteDirectory(ctx, "movies/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, result.Status)
	assert.NoFileExists(t, fx.path("movies", "a.jpg"))
	assert.DirExists(t, fx.path("movies"))

	require.NoError(t, os.MkdirAll(fx.path("shows", "s1"), 0755))
	require.NoError(t, os.WriteFile(fx.path("shows", "s1", "b.jpg"), []byte("x"), 0644))

	result, err = fx.svc.DeleteDirectoryAndPrune(ctx, "shows/s1/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, result.Status)
	assert.Equal(t, []string{fx.path("shows", "s1"), fx.path("shows")}, result.Pruned)
	assert.NoDirExists(t, fx.path("shows"))
	assert.DirExists(t, fx.path("movies"))
}

func TestService_RootIsProtected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(fx.path("keep.txt"), []byte("x"), 0644))

	for _, dir := range []string{".", "/", "movies/.."} {
		_, err := fx.svc.DeleteDirectory(ctx, dir)
		require.Error(t, err, dir)
		assert.True(t, domain.IsValidation(err))
		assert.ErrorIs(t, err, domain.ErrRootProtected)

		_, err = fx.svc.DeleteDirectoryAndPrune(ctx, dir)
		assert.ErrorIs(t, err, domain.ErrRootProtected)
	}
	assert.FileExists(t, fx.path("keep.txt"))
}

func TestService_WriteArtifact(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.svc.WriteArtifact(ctx, "movies/a", "a.nfo", "<movie/>")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWritten, result.Status)
	assert.Equal(t, int64(len("<movie/>")), result.Bytes)

	got, err := os.ReadFile(fx.path("movies", "a", "a.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "<movie/>", string(got))

	_, err = fx.svc.WriteArtifact(ctx, "movies/a", "a.nfo", "<movie>v2</movie>")
	require.NoError(t, err)
	got, err = os.ReadFile(fx.path("movies", "a", "a.nfo"))
	require.NoError(t, err)
	assert.Equal(t, "<movie>v2</movie>", string(got))
}

func TestService_Validation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{
			name:  "delete file without directory",
			call:  func() error { _, err := fx.svc.DeleteFile(ctx, "", "a.nfo"); return err },
			field: "dirName",
		},
		{
			name:  "delete file without name",
			call:  func() error { _, err := fx.svc.DeleteFile(ctx, "a", ""); return err },
			field: "fileName",
		},
		{
			name:  "create directory without directory",
			call:  func() error { _, err := fx.svc.CreateDirectory(ctx, ""); return err },
			field: "dirName",
		},
		{
			name:  "delete directory without directory",
			call:  func() error { _, err := fx.svc.DeleteDirectory(ctx, ""); return err },
			field: "dirName",
		},
		{
			name:  "write without content",
			call:  func() error { _, err := fx.svc.WriteArtifact(ctx, "a", "a.strm", ""); return err },
			field: "content",
		},
		{
			name: "fetch without url",
			call: func() error {
				_, err := fx.svc.FetchToFile(ctx, domain.DownloadRequest{TargetDirectory: "a", DestinationFileName: "a.jpg"})
				return err
			},
			field: "imageUrl",
		},
		{
			name: "fetch without name",
			call: func() error {
				_, err := fx.svc.FetchToFile(ctx, domain.DownloadRequest{TargetDirectory: "a", SourceURL: "http://x/a.jpg"})
				return err
			},
			field: "imageName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.ErrorIs(t, err, domain.ErrEmptyField)

			var fe *domain.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}

	assert.Zero(t, fx.downloader.calls)
	entries, err := os.ReadDir(fx.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_FileNameMustNameAFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(fx.path("movies", "a"), 0755))

	for _, name := range []string{".", ".."} {
		_, err := fx.svc.WriteArtifact(ctx, "movies/a", name, "x")
		require.Error(t, err, name)
		assert.True(t, domain.IsValidation(err), name)
		assert.ErrorIs(t, err, domain.ErrInvalidFileName)

		_, err = fx.svc.DeleteFile(ctx, "movies/a", name)
		assert.ErrorIs(t, err, domain.ErrInvalidFileName)
	}
	assert.DirExists(t, fx.path("movies", "a"))
}

func TestService_TraversalRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(fx.root), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))
	t.Cleanup(func() { os.Remove(outside) })

	_, err := fx.svc.DeleteFile(ctx, "..", "outside.txt")
	assert.ErrorIs(t, err, domain.ErrPathOutsideSandbox)
	_, err = fx.svc.DeleteFile(ctx, "a", "../../outside.txt")
	assert.ErrorIs(t, err, domain.ErrPathOutsideSandbox)
	_, err = fx.svc.WriteArtifact(ctx, "a", "../../evil.nfo", "x")
	assert.ErrorIs(t, err, domain.ErrPathOutsideSandbox)
	_, err = fx.svc.CreateDirectory(ctx, "../../evil")
	assert.ErrorIs(t, err, domain.ErrPathOutsideSandbox)

	assert.FileExists(t, outside)
	entry := fx.journal.last(t)
	assert.Equal(t, string(domain.KindValidation), entry.Status)
	assert.NotEmpty(t, entry.Error)
}

func TestService_FetchToFile(t *testing.T) {
	fx := newFixture(t)
	fx.downloader.result = &domain.OpResult{
		Op:        domain.OpFetchToFile,
		Path:      fx.path("movies", "a", "poster.jpg"),
		Status:    domain.StatusWritten,
		Bytes:     42,
		Transport: "javbus",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := fx.svc.FetchToFile(ctx, domain.DownloadRequest{
		TargetDirectory:     "movies/a",
		SourceURL:           "https://www.javbus.com/pics/cover/a.jpg",
		DestinationFileName: "poster.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWritten, result.Status)
	assert.NoError(t, fx.downloader.ctxErr, "download must not observe caller cancellation")

	entry := fx.journal.last(t)
	assert.Equal(t, domain.OpFetchToFile, entry.Op)
	assert.Equal(t, "javbus", entry.Transport)
	assert.Equal(t, int64(42), entry.Bytes)
}

func TestService_FetchToFile_NetworkFailureRecorded(t *testing.T) {
	fx := newFixture(t)
	fx.downloader.err = domain.NewNetworkError(domain.OpFetchToFile, "http://x/a.jpg", errors.New("connection refused"))

	_, err := fx.svc.FetchToFile(context.Background(), domain.DownloadRequest{
		TargetDirectory:     "a",
		SourceURL:           "http://x/a.jpg",
		DestinationFileName: "a.jpg",
	})
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))

	entry := fx.journal.last(t)
	assert.Equal(t, string(domain.KindNetwork), entry.Status)
	assert.Equal(t, "http://x/a.jpg", entry.Path)
	assert.Equal(t, []string{"fetch_to_file:network"}, fx.recorder.calls)
}

func TestService_JournalFailureDoesNotFailOperation(t *testing.T) {
	fx := newFixture(t)
	fx.journal.err = errors.New("database is locked")

	result, err := fx.svc.CreateDirectory(context.Background(), "movies")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, result.Status)
	assert.Error(t, fx.svc.Health(context.Background()))
}

func TestService_RecentOperations(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, _ = fx.svc.CreateDirectory(ctx, "a")
	_, _ = fx.svc.CreateDirectory(ctx, "b")
	_, _ = fx.svc.DeleteDirectory(ctx, "a")

	entries, err := fx.svc.RecentOperations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OpDeleteDirectory, entries[0].Op)
	assert.Equal(t, fx.path("b"), entries[1].Path)
}

func TestService_Stats(t *testing.T) {
	fx := newFixture(t)

	usage, err := fx.svc.Stats()
	require.NoError(t, err)
	assert.Greater(t, usage.Total, uint64(0))
	assert.Equal(t, fx.root, fx.svc.Root())
}
