package archive

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream codec wrapped around a tar archive.
type Compression int

const (
	// CompressionNone indicates a plain tar stream.
	CompressionNone Compression = iota
	// CompressionGzip indicates a .tar.gz / .tgz stream.
	CompressionGzip
	// CompressionZstd indicates a .tar.zst stream.
	CompressionZstd
	// CompressionLZ4 indicates a .tar.lz4 stream (LZ4 frame format).
	CompressionLZ4
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Extension returns the archive file suffix for c, including the ".tar" part.
func (c Compression) Extension() string {
	switch c {
	case CompressionNone:
		return ".tar"
	case CompressionZstd:
		return ".tar.zst"
	case CompressionLZ4:
		return ".tar.lz4"
	default:
		return ".tar.gz"
	}
}

// ParseCompression parses a codec name as given on the command line.
// The empty string selects gzip.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gzip", "gz", "":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none", "tar":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want gzip, zstd, lz4 or none)", name)
	}
}

// CompressionFromName picks a compression from an archive URL or file name
// suffix. Query strings and fragments are ignored. Unrecognized suffixes
// default to gzip, which is what every published artifact uses.
func CompressionFromName(name string) Compression {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return CompressionZstd
	case strings.HasSuffix(lower, ".tar.lz4"):
		return CompressionLZ4
	case strings.HasSuffix(lower, ".tar"):
		return CompressionNone
	default:
		return CompressionGzip
	}
}

// DecompressError reports a malformed compressed stream.
type DecompressError struct {
	Compression Compression
	Err         error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("%s decompress: %v", e.Compression, e.Err)
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// Decompress wraps r in a streaming decoder. Nothing is buffered beyond the
// decoder's own window; the returned reader must be closed by the caller.
//
// Errors surfacing from Read on the returned reader are *DecompressError,
// so callers can tell codec failures apart from tar format failures.
func Decompress(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil

	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, &DecompressError{Compression: c, Err: err}
		}
		return &taggedReader{r: gz, closer: gz, compression: c}, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, &DecompressError{Compression: c, Err: err}
		}
		rc := dec.IOReadCloser()
		return &taggedReader{r: rc, closer: rc, compression: c}, nil

	case CompressionLZ4:
		return &taggedReader{r: lz4.NewReader(r), compression: c}, nil

	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// taggedReader converts decoder read failures into *DecompressError.
type taggedReader struct {
	r           io.Reader
	closer      io.Closer
	compression Compression
}

func (t *taggedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		var decErr *DecompressError
		if !errors.As(err, &decErr) {
			err = &DecompressError{Compression: t.compression, Err: err}
		}
	}
	return n, err
}

func (t *taggedReader) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
