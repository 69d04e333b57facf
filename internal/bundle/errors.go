package bundle

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	errBaseNotAbsolute = errors.New("base url is not absolute")
	errNotDirectory    = errors.New("not a directory")
)

// MissingFieldError is returned by Builder.Build when a required field
// (version or primary_url) was never set.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "bundle: no " + e.Field
}

// InvalidPathError reports a path that must be relative to the base
// directory but is absolute, empty, or climbs out of it.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("bundle: invalid path %q: %s", e.Path, e.Reason)
}

// URLError reports a failure to join a relative path onto the base URL.
type URLError struct {
	Base string
	Path string
	Err  error
}

func (e *URLError) Error() string {
	return fmt.Sprintf("bundle: join %q onto %q: %v", e.Path, e.Base, e.Err)
}

func (e *URLError) Unwrap() error { return e.Err }

// IOErrorKind classifies the OS failure behind an IOError.
type IOErrorKind int

const (
	IOErrorOther IOErrorKind = iota
	IOErrorNotFound
	IOErrorPermissionDenied
)

func (k IOErrorKind) String() string {
	switch k {
	case IOErrorNotFound:
		return "not found"
	case IOErrorPermissionDenied:
		return "permission denied"
	default:
		return "other"
	}
}

// IOError reports a failure reading a single file. The OS error is kept as
// the cause, so errors.Is(err, fs.ErrNotExist) works through it.
type IOError struct {
	Path string
	Kind IOErrorKind
	Err  error
}

func newIOError(path string, err error) *IOError {
	kind := IOErrorOther
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = IOErrorNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = IOErrorPermissionDenied
	}
	return &IOError{Path: path, Kind: kind, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bundle: read %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TraversalError reports a failure of the directory walk itself, as
// opposed to a failure reading one file found by it.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("bundle: walk %s: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// ConfigurationError is returned by Builder.ExchangesFromDir when the
// directory could not be turned into exchanges. The collector's error is
// preserved as the cause.
type ConfigurationError struct {
	Dir string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bundle: exchanges from %s: %v", e.Dir, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// errorType maps an error to a short label for metrics.
func errorType(err error) string {
	var (
		ip *InvalidPathError
		ue *URLError
		ie *IOError
		te *TraversalError
	)
	switch {
	case errors.As(err, &te):
		return "traversal"
	case errors.As(err, &ie):
		return "io"
	case errors.As(err, &ip):
		return "invalid_path"
	case errors.As(err, &ue):
		return "url"
	default:
		return "other"
	}
}
