package tap

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned by every authenticated operation
	// when the client was constructed without credentials. No network
	// call is made in that case.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrFilenameUnresolvable is returned when a bulk-download
	// response carries no usable content-disposition filename. The
	// download is aborted since the destination cannot be inferred.
	ErrFilenameUnresolvable = errors.New("unable to resolve filename from server response")
)

// StatusError is a non-2xx response from the archive.
type StatusError struct {
	Code   int
	Status string
	// Body holds a snippet of the response body, which usually
	// carries the service's error message.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// NotFoundError reports a metadata lookup for a schema or table the
// archive catalog does not contain.
type NotFoundError struct {
	Schema string
	Table  string
}

func (e *NotFoundError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema %q not found", e.Schema)
	}
	return fmt.Sprintf("table %q not found in schema %q", e.Table, e.Schema)
}
