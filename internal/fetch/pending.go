package fetch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fsError marks a failure that happened on the local filesystem
type fsError struct {
	op  string
	err error
}

func (e *fsError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *fsError) Unwrap() error {
	return e.err
}

// pendingFile is a temporary file next to its destination. It becomes
// visible at the destination path only through commit.
type pendingFile struct {
	file    *os.File
	tmpPath string
	dest    string
	written int64
	closed  bool
	done    bool
}

// createPending exclusively creates a temp file in the destination directory
// with the given permission bits.
func createPending(dest string, mode fs.FileMode) (*pendingFile, error) {
	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, &fsError{op: "create dest dir", err: err}
	}

	file, err := os.CreateTemp(destDir, "."+filepath.Base(dest)+".*.partial")
	if err != nil {
		return nil, &fsError{op: "create temp file", err: err}
	}

	p := &pendingFile{file: file, tmpPath: file.Name(), dest: dest}
	if err := file.Chmod(mode); err != nil {
		p.discard()
		return nil, &fsError{op: "set file mode", err: err}
	}
	return p, nil
}

// Write appends a chunk in arrival order.
func (p *pendingFile) Write(b []byte) (int, error) {
	n, err := p.file.Write(b)
	p.written += int64(n)
	if err != nil {
		return n, &fsError{op: "write temp file", err: err}
	}
	return n, nil
}

// finish flushes and closes the temp file.
func (p *pendingFile) finish() error {
	if err := p.file.Sync(); err != nil {
		return &fsError{op: "sync temp file", err: err}
	}
	p.closed = true
	if err := p.file.Close(); err != nil {
		return &fsError{op: "close temp file", err: err}
	}
	return nil
}

// errDestExists is returned by commit when another writer published the
// destination first.
var errDestExists = errors.New("destination already exists")

// commit publishes the finished file at its destination without replacing
// an existing file there. The temp file is removed either way.
func (p *pendingFile) commit() error {
	err := os.Link(p.tmpPath, p.dest)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrExist):
		p.discard()
		return errDestExists
	default:
		// Filesystems without hard links fall back to rename after a final
		// existence check.
		if _, statErr := os.Lstat(p.dest); statErr == nil {
			p.discard()
			return errDestExists
		}
		if err := os.Rename(p.tmpPath, p.dest); err != nil {
			return &fsError{op: "rename temp file", err: err}
		}
		p.done = true
		return nil
	}

	p.done = true
	if err := os.Remove(p.tmpPath); err != nil {
		return &fsError{op: "remove temp file", err: err}
	}
	return nil
}

// discard removes the temp file. It is a no-op after commit.
func (p *pendingFile) discard() {
	if p.done {
		return
	}
	if !p.closed {
		p.closed = true
		_ = p.file.Close()
	}
	_ = os.Remove(p.tmpPath)
	p.done = true
}
