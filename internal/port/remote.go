package port

import (
	"context"
	"io"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

// RemoteContent is an open response body from a remote source.
// The caller must close Body.
type RemoteContent struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
}

// Transport fetches a URL as a byte stream
type Transport interface {
	// Name returns the rule name, or "direct" for the fallback
	Name() string

	// Choice returns whether requests go through a proxy
	Choice() domain.TransportChoice

	// Fetch issues a GET and returns the body of a 2xx response.
	// Any other outcome is a NetworkError.
	Fetch(ctx context.Context, url string) (*RemoteContent, error)
}

// TransportSelector picks the transport for a source URL
type TransportSelector interface {
	Select(url string) Transport
}
