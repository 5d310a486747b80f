// Package failure defines the error taxonomy shared by the indexer, the
// decoder and the navigation controller. Every failure the core can report is
// one of these reasons; none of them is fatal to a viewing session.
package failure

import (
	"errors"
	"fmt"
)

// Reason classifies why an operation failed
type Reason int

const (
	None Reason = iota
	DirectoryUnreadable
	EmptyGallery
	UnsupportedFormat
	CorruptData
	Truncated
	FileUnreadable
)

// Sentinel errors for use with errors.Is
var (
	ErrDirectoryUnreadable = &Error{Reason: DirectoryUnreadable}
	ErrEmptyGallery        = &Error{Reason: EmptyGallery}
	ErrUnsupportedFormat   = &Error{Reason: UnsupportedFormat}
	ErrCorruptData         = &Error{Reason: CorruptData}
	ErrTruncated           = &Error{Reason: Truncated}
	ErrFileUnreadable      = &Error{Reason: FileUnreadable}
)

func (r Reason) String() string {
	switch r {
	case None:
		return "None"
	case DirectoryUnreadable:
		return "DirectoryUnreadable"
	case EmptyGallery:
		return "EmptyGallery"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case CorruptData:
		return "CorruptData"
	case Truncated:
		return "Truncated"
	case FileUnreadable:
		return "FileUnreadable"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Message returns the text shown on a placeholder for this reason
func (r Reason) Message() string {
	switch r {
	case None:
		return ""
	case DirectoryUnreadable:
		return "Folder cannot be read"
	case EmptyGallery:
		return "No images in this folder"
	case UnsupportedFormat:
		return "Unsupported image format"
	case CorruptData:
		return "Image data is corrupt"
	case Truncated:
		return "Image file is truncated"
	case FileUnreadable:
		return "File cannot be read"
	default:
		return "Unknown error"
	}
}

// Error carries a Reason together with the path it concerns and the
// underlying cause.
type Error struct {
	Reason Reason
	Path   string
	Err    error
}

// New creates an Error
func New(reason Reason, path string, err error) *Error {
	return &Error{Reason: reason, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Reason.Message()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Reason, so the sentinels above work
// regardless of path or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// ReasonOf extracts the Reason from err, or None if err is not a failure.
func ReasonOf(err error) Reason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return None
}
