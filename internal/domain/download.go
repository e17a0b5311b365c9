package domain

// TransportChoice selects how a remote source is fetched
type TransportChoice int

const (
	TransportDirect TransportChoice = iota
	TransportProxied
)

// String returns the string representation of the choice
func (t TransportChoice) String() string {
	switch t {
	case TransportProxied:
		return "proxied"
	default:
		return "direct"
	}
}

// DownloadRequest describes a fetch of a remote file into the sandbox
type DownloadRequest struct {
	TargetDirectory     string
	SourceURL           string
	DestinationFileName string
}

// Validate checks that all fields are set
func (r DownloadRequest) Validate() error {
	switch {
	case r.TargetDirectory == "":
		return MissingField(OpFetchToFile, "directory")
	case r.SourceURL == "":
		return MissingField(OpFetchToFile, "source url")
	case r.DestinationFileName == "":
		return MissingField(OpFetchToFile, "file name")
	}
	return nil
}
