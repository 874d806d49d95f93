// Package archive streams entries out of compressed tar archives.
//
// Entries are produced as a pull-based lazy sequence: the consumer handles
// one entry at a time, either reading it or draining it, before asking for
// the next. Only the in-flight read buffer is held in memory.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path"
	"strings"
)

// ErrEntryClosed is returned when an entry is read after the sequence advanced.
var ErrEntryClosed = errors.New("archive entry read after iterator advanced")

// FormatError reports a malformed tar stream.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("read tar stream: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Entry is one member of a tar stream. It reads the member's bytes and is
// only valid until the sequence yields the next entry.
type Entry struct {
	Name string
	Mode fs.FileMode // permission bits only
	Size int64       // size recorded in the header
	Type byte        // tar typeflag

	tr     *tar.Reader
	closed bool
}

// IsRegular reports whether the entry is a regular file.
func (e *Entry) IsRegular() bool {
	return e.Type == tar.TypeReg || e.Type == tar.TypeRegA //nolint:staticcheck // old archives still use TypeRegA
}

// Read reads from the entry's byte stream.
func (e *Entry) Read(p []byte) (int, error) {
	if e.closed {
		return 0, ErrEntryClosed
	}
	n, err := e.tr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = classify(err)
	}
	return n, err
}

// Drain consumes and discards the rest of the entry.
func (e *Entry) Drain() (int64, error) {
	return io.Copy(io.Discard, e)
}

// Entries yields the members of a tar stream in archive order. A malformed
// header ends the sequence with a *FormatError (or the *DecompressError that
// caused it). Breaking out of the loop stops reading.
func Entries(r io.Reader) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		tr := tar.NewReader(r)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, classify(err))
				return
			}

			entry := &Entry{
				Name: hdr.Name,
				Mode: fs.FileMode(hdr.Mode).Perm(),
				Size: hdr.Size,
				Type: hdr.Typeflag,
				tr:   tr,
			}
			ok := yield(entry, nil)
			entry.closed = true
			if !ok {
				return
			}
		}
	}
}

// classify leaves codec errors alone and marks everything else as a tar
// format problem.
func classify(err error) error {
	var decErr *DecompressError
	if errors.As(err, &decErr) {
		return err
	}
	var fmtErr *FormatError
	if errors.As(err, &fmtErr) {
		return err
	}
	return &FormatError{Err: err}
}

// MatchName reports whether an entry name refers to want. Both sides are
// cleaned and a leading "./" is ignored, so "./build/Release/x.node" matches
// "build/Release/x.node". A want with no directory part names a file at any
// depth: "duckdb.node" matches "binding/duckdb.node".
func MatchName(entryName, want string) bool {
	entry, want := normalizeName(entryName), normalizeName(want)
	if entry == want {
		return true
	}
	return !strings.Contains(want, "/") && path.Base(entry) == want
}

func normalizeName(name string) string {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimPrefix(name, "./")
	return strings.TrimPrefix(name, "/")
}
