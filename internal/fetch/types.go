package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Status is the terminal state of one target's pipeline
type Status int

const (
	// StatusSkipped indicates the destination already existed
	StatusSkipped Status = iota
	// StatusCompleted indicates the archive was fully consumed
	StatusCompleted
	// StatusFailed indicates an error at any pipeline stage
	StatusFailed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result record produced once per target
type Outcome struct {
	PlatformKey string
	Status      Status
	Err         error // set only when Status is StatusFailed

	Path       string        // destination path
	EntryFound bool          // false for a Completed run that matched nothing
	Bytes      int64         // bytes written to Path
	Duration   time.Duration // wall time of the pipeline
}

// ErrorKind classifies pipeline failures
type ErrorKind int

const (
	// KindNetwork covers connection failures and non-success HTTP statuses
	KindNetwork ErrorKind = iota + 1
	// KindDecompression covers malformed compressed streams
	KindDecompression
	// KindArchiveFormat covers malformed tar streams
	KindArchiveFormat
	// KindFilesystem covers create, write, link and close failures
	KindFilesystem
	// KindConfiguration covers a target missing a URL, destination or entry name
	KindConfiguration
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecompression:
		return "decompression"
	case KindArchiveFormat:
		return "archive-format"
	case KindFilesystem:
		return "filesystem"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is the failure detail attached to a Failed outcome
type Error struct {
	Kind        ErrorKind
	PlatformKey string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.PlatformKey, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return 0
}

// StatusError is returned for non-2xx HTTP responses
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status fetching %s: %s", e.URL, e.Status)
}

// Summary counts outcomes by status
type Summary struct {
	Skipped   int
	Completed int
	Failed    int
	// NotFound counts Completed outcomes whose archive held no matching entry
	NotFound int
}

// Summarize counts a result set
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case StatusSkipped:
			s.Skipped++
		case StatusCompleted:
			s.Completed++
			if !o.EntryFound {
				s.NotFound++
			}
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// HasFailures reports whether any target failed
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}
