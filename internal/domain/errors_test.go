package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestOpError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OpError
		want string
	}{
		{
			name: "op, path and cause",
			err:  NewWriteError("delete_file", "/data/a.txt", errors.New("permission denied")),
			want: "delete_file /data/a.txt: permission denied",
		},
		{
			name: "op and cause",
			err:  MissingField("fetch_to_file", "source url"),
			want: "fetch_to_file: source url is required",
		},
		{
			name: "cause only",
			err:  &OpError{Kind: KindNetwork, Err: errors.New("connection refused")},
			want: "connection refused",
		},
		{
			name: "op without cause",
			err:  &OpError{Kind: KindWrite, Op: "write_artifact"},
			want: "write_artifact: write error",
		},
		{
			name: "empty",
			err:  &OpError{Kind: KindValidation},
			want: "validation error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	oe := NewNetworkError("fetch_to_file", "http://example.com/a.jpg", underlying)

	if got := oe.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
	if !errors.Is(oe, underlying) {
		t.Error("errors.Is should reach the underlying error")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "validation",
			err:  NewValidationError("create_directory", "../x", ErrPathOutsideSandbox),
			want: KindValidation,
		},
		{
			name: "wrapped write",
			err:  fmt.Errorf("handler: %w", NewWriteError("write_artifact", "/x", errors.New("disk full"))),
			want: KindWrite,
		},
		{
			name: "network",
			err:  NewNetworkError("fetch_to_file", "http://x", ErrUnexpectedStatus),
			want: KindNetwork,
		},
		{
			name: "plain error",
			err:  errors.New("plain"),
			want: "",
		},
		{
			name: "nil",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindHelpers(t *testing.T) {
	v := MissingField("delete_file", "file name")
	w := NewWriteError("delete_file", "/x", errors.New("busy"))
	n := NewNetworkError("fetch_to_file", "http://x", errors.New("timeout"))

	if !IsValidation(v) || IsWrite(v) || IsNetwork(v) {
		t.Error("validation error misclassified")
	}
	if !IsWrite(w) || IsValidation(w) || IsNetwork(w) {
		t.Error("write error misclassified")
	}
	if !IsNetwork(n) || IsValidation(n) || IsWrite(n) {
		t.Error("network error misclassified")
	}
}

func TestMissingFieldMatchesErrEmptyField(t *testing.T) {
	err := MissingField("create_directory", "directory")

	if !errors.Is(err, ErrEmptyField) {
		t.Error("MissingField should match ErrEmptyField")
	}

	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatal("MissingField should carry a FieldError")
	}
	if fe.Field != "directory" {
		t.Errorf("Field = %q, want %q", fe.Field, "directory")
	}
}

func TestDownloadRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       DownloadRequest
		wantField string
	}{
		{
			name: "complete",
			req:  DownloadRequest{TargetDirectory: "movies/a", SourceURL: "http://x/a.jpg", DestinationFileName: "poster.jpg"},
		},
		{
			name:      "missing directory",
			req:       DownloadRequest{SourceURL: "http://x/a.jpg", DestinationFileName: "poster.jpg"},
			wantField: "directory",
		},
		{
			name:      "missing url",
			req:       DownloadRequest{TargetDirectory: "movies/a", DestinationFileName: "poster.jpg"},
			wantField: "source url",
		},
		{
			name:      "missing file name",
			req:       DownloadRequest{TargetDirectory: "movies/a", SourceURL: "http://x/a.jpg"},
			wantField: "file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Validate() = %v, want FieldError", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", fe.Field, tt.wantField)
			}
			if !IsValidation(err) {
				t.Error("expected validation kind")
			}
		})
	}
}

func TestTransportChoice_String(t *testing.T) {
	if got := TransportDirect.String(); got != "direct" {
		t.Errorf("TransportDirect.String() = %q", got)
	}
	if got := TransportProxied.String(); got != "proxied" {
		t.Errorf("TransportProxied.String() = %q", got)
	}
}
