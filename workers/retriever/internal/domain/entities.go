package domain

import (
	"mime"
	"strings"
)

// RetrievalState tracks one request through the two-phase fetch.
type RetrievalState int

const (
	StateInit RetrievalState = iota
	StateFetchedPrimary
	StateNeedsConfirmation
	StateFetchedConfirmed
	StateDone
	StateFailed
)

var stateNames = map[RetrievalState]string{
	StateInit:              "init",
	StateFetchedPrimary:    "fetched_primary",
	StateNeedsConfirmation: "needs_confirmation",
	StateFetchedConfirmed:  "fetched_confirmed",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s RetrievalState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// RetrieveRequest is the worker payload. An empty Resource selects the
// default resource.
type RetrieveRequest struct {
	Resource string `json:"resource,omitempty"`
}

// RetrievalRequest is one outbound attempt for a resource.
type RetrievalRequest struct {
	ResourceID string
	Attempt    int // 1 for the primary fetch, 2 for the confirmed fetch
}

// UpstreamResponse is what the file host returned for one attempt.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports a 2xx status.
func (r *UpstreamResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsHTML reports whether the host answered with a page instead of the file.
func (r *UpstreamResponse) IsHTML() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(r.ContentType))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ConfirmationToken is the value the host's warning page expects back.
type ConfirmationToken struct {
	Value string
}

// Artifact is the retrieved file, ready to be written to the caller.
type Artifact struct {
	ResourceID  string
	ContentType string
	Filename    string
	Body        []byte
	Attempts    int
	State       RetrievalState
}

// Size returns the body length in bytes.
func (a *Artifact) Size() int64 {
	return int64(len(a.Body))
}
