package testutil

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// TarEntry describes one member of a test archive.
type TarEntry struct {
	Name string
	Body string
	Mode int64 // defaults to 0644
	Type byte  // defaults to tar.TypeReg
}

// Tar builds an uncompressed tar stream with entries in the given order.
func Tar(t *testing.T, entries ...TarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Size:     int64(len(e.Body)),
			Typeflag: e.Type,
		}
		if header.Mode == 0 {
			header.Mode = 0o644
		}
		if header.Typeflag == 0 {
			header.Typeflag = tar.TypeReg
		}
		if header.Typeflag == tar.TypeDir || header.Typeflag == tar.TypeSymlink {
			header.Size = 0
		}

		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.Name, err)
		}
		if header.Size > 0 {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// TarGz builds a gzip-compressed tar stream.
func TarGz(t *testing.T, entries ...TarEntry) []byte {
	t.Helper()
	return Gzip(t, Tar(t, entries...))
}

// Gzip compresses raw bytes.
func Gzip(t *testing.T, raw []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// TarZstd builds a zstd-compressed tar stream.
func TarZstd(t *testing.T, entries ...TarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create zstd writer: %v", err)
	}
	if _, err := enc.Write(Tar(t, entries...)); err != nil {
		t.Fatalf("failed to zstd: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close zstd writer: %v", err)
	}
	return buf.Bytes()
}

// TarLZ4 builds an lz4-framed tar stream.
func TarLZ4(t *testing.T, entries ...TarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	lw := lz4.NewWriter(&buf)
	if _, err := lw.Write(Tar(t, entries...)); err != nil {
		t.Fatalf("failed to lz4: %v", err)
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("failed to close lz4 writer: %v", err)
	}
	return buf.Bytes()
}
