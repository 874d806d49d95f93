// Package fetch streams prebuilt archives from the network and materializes
// the single artifact each one carries.
//
// The pipeline for one target is: existence check, HTTP GET, streaming
// decompression, tar demultiplexing, and a write of the matching entry to a
// temporary file that is linked into place only after the whole archive has
// been consumed without error. An existing destination is never replaced. A failed target therefore never leaves a file
// at its destination path, and a later run retries it instead of skipping it.
//
// Every failure is captured in the returned Outcome; nothing escapes to
// abort sibling targets.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/archive"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/logging"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "prebuilt/1.0"
	// maxRedirects matches the redirect budget of release hosts such as GitHub
	maxRedirects = 10
	// copyBufferSize bounds the bytes held in flight per target
	copyBufferSize = 32 * 1024
)

// Config holds configuration for a Fetcher
type Config struct {
	// Client overrides the HTTP client (optional)
	Client *http.Client
	// UserAgent overrides DefaultUserAgent
	UserAgent string
	// Timeout bounds a single target's pipeline. Zero means no timeout.
	Timeout time.Duration
	// Concurrency caps in-flight targets during Run. Zero means unlimited.
	Concurrency int
	// Logger receives progress messages (optional)
	Logger logging.Logger
}

// Fetcher runs the fetch-extract pipeline
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	concurrency int
	logger      logging.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Noop()
	}

	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// FetchAndExtract materializes one target and reports how it ended.
// It never returns an error directly; failures are carried in Outcome.Err
// as an *Error.
func (f *Fetcher) FetchAndExtract(ctx context.Context, target matrix.Target) Outcome {
	start := time.Now()
	outcome := Outcome{
		PlatformKey: target.PlatformKey,
		Path:        target.DestinationPath,
	}

	if err := validateTarget(target); err != nil {
		return f.failed(outcome, start, KindConfiguration, err)
	}

	present, err := pathExists(target.DestinationPath)
	if err != nil {
		return f.failed(outcome, start, KindFilesystem, fmt.Errorf("check destination: %w", err))
	}
	if present {
		f.logger.Info("Already exists", "platform", target.PlatformKey, "dest", target.DestinationPath)
		outcome.Status = StatusSkipped
		outcome.Duration = time.Since(start)
		return outcome
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Info("Fetching", "platform", target.PlatformKey, "url", target.ArchiveURL)

	result, kind, err := f.fetch(ctx, target)
	if errors.Is(err, errDestExists) {
		f.logger.Info("Already exists", "platform", target.PlatformKey, "dest", target.DestinationPath)
		outcome.Status = StatusSkipped
		outcome.Duration = time.Since(start)
		return outcome
	}
	if err != nil {
		return f.failed(outcome, start, kind, err)
	}

	outcome.Status = StatusCompleted
	outcome.EntryFound = result.found
	outcome.Bytes = result.written
	outcome.Duration = time.Since(start)

	if result.found {
		f.logger.Info("Extracted",
			"platform", target.PlatformKey,
			"dest", target.DestinationPath,
			"bytes", humanize.Bytes(uint64(result.written)),
			"downloaded", humanize.Bytes(uint64(result.downloaded)),
			"duration", outcome.Duration)
	} else {
		f.logger.Warn("No matching entry in archive",
			"platform", target.PlatformKey,
			"entry", target.EntryName,
			"url", target.ArchiveURL)
	}

	return outcome
}

// fetchResult summarizes a successful pipeline run
type fetchResult struct {
	found      bool
	written    int64
	downloaded int64
}

// fetch performs the network and extraction stages. The returned kind is
// meaningful only when err is non-nil.
func (f *Fetcher) fetch(ctx context.Context, target matrix.Target) (fetchResult, ErrorKind, error) {
	var result fetchResult

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.ArchiveURL, nil)
	if err != nil {
		return result, KindNetwork, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return result, KindNetwork, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, KindNetwork, &StatusError{
			URL:        target.ArchiveURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	f.logger.Debug("Reading", "platform", target.PlatformKey, "url", target.ArchiveURL)

	body := &sourceReader{r: resp.Body}
	stream, err := archive.Decompress(body, archive.CompressionFromName(target.ArchiveURL))
	if err != nil {
		kind, err := classify(err, body)
		return result, kind, err
	}
	defer stream.Close()

	pending, found, err := f.extract(stream, target)
	result.downloaded = body.n
	if err != nil {
		kind, err := classify(err, body)
		return result, kind, err
	}
	if pending != nil {
		defer pending.discard()
	}

	// The tar trailer can end before the compressed stream does. Reading to
	// EOF makes the codec verify its checksum before anything is committed.
	if _, err := io.Copy(io.Discard, stream); err != nil {
		kind, err := classify(fmt.Errorf("drain archive trailer: %w", err), body)
		return result, kind, err
	}
	result.downloaded = body.n

	if !found {
		return result, 0, nil
	}

	if err := pending.commit(); err != nil {
		if errors.Is(err, errDestExists) {
			return result, 0, err
		}
		return result, KindFilesystem, err
	}
	result.found = true
	result.written = pending.written
	return result, 0, nil
}

// extract walks the archive, streaming the first matching regular entry into
// a pending file and draining everything else. On error the pending file is
// already discarded.
func (f *Fetcher) extract(stream io.Reader, target matrix.Target) (*pendingFile, bool, error) {
	var pending *pendingFile
	buf := make([]byte, copyBufferSize)

	fail := func(err error) (*pendingFile, bool, error) {
		if pending != nil {
			pending.discard()
		}
		return nil, false, err
	}

	for entry, err := range archive.Entries(stream) {
		if err != nil {
			return fail(err)
		}

		matches := archive.MatchName(entry.Name, target.EntryName)
		switch {
		case matches && entry.IsRegular() && pending == nil:
			p, err := createPending(target.DestinationPath, entry.Mode)
			if err != nil {
				return fail(err)
			}
			pending = p

			if _, err := io.CopyBuffer(pending, entry, buf); err != nil {
				return fail(fmt.Errorf("write %s: %w", entry.Name, err))
			}
			if err := pending.finish(); err != nil {
				return fail(err)
			}

		case matches && entry.IsRegular():
			f.logger.Warn("Duplicate entry ignored", "platform", target.PlatformKey, "entry", entry.Name)
			if _, err := entry.Drain(); err != nil {
				return fail(err)
			}

		default:
			n, err := entry.Drain()
			if err != nil {
				return fail(err)
			}
			f.logger.Debug("Skipped entry", "platform", target.PlatformKey, "entry", entry.Name, "bytes", n)
		}
	}

	return pending, pending != nil, nil
}

func (f *Fetcher) failed(outcome Outcome, start time.Time, kind ErrorKind, err error) Outcome {
	outcome.Status = StatusFailed
	outcome.Err = &Error{Kind: kind, PlatformKey: outcome.PlatformKey, Err: err}
	outcome.Duration = time.Since(start)
	f.logger.Error("Fetch failed", "platform", outcome.PlatformKey, "kind", kind.String(), "error", err)
	return outcome
}

// classify decides which stage an error belongs to. A failed network read
// wins over whatever the decoder made of the short stream.
func classify(err error, body *sourceReader) (ErrorKind, error) {
	if body.err != nil {
		return KindNetwork, fmt.Errorf("read response body: %w", body.err)
	}

	var fsErr *fsError
	var decErr *archive.DecompressError
	var fmtErr *archive.FormatError
	switch {
	case errors.As(err, &fsErr):
		return KindFilesystem, err
	case errors.As(err, &decErr):
		return KindDecompression, err
	case errors.As(err, &fmtErr):
		return KindArchiveFormat, err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork, err
	default:
		return KindArchiveFormat, err
	}
}

// sourceReader counts compressed bytes and remembers the first read failure
// of the response body.
type sourceReader struct {
	r   io.Reader
	n   int64
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

// validateTarget rejects a target missing any field the pipeline needs.
func validateTarget(target matrix.Target) error {
	switch {
	case target.ArchiveURL == "":
		return fmt.Errorf("%s: empty archive URL", target.PlatformKey)
	case target.DestinationPath == "":
		return fmt.Errorf("%s: empty destination path", target.PlatformKey)
	case target.EntryName == "":
		return fmt.Errorf("%s: empty entry name", target.PlatformKey)
	}
	return nil
}

// pathExists reports whether anything is present at path. Presence alone
// counts; contents are not inspected.
func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
