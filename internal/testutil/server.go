package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Route is a canned response served by ArchiveServer.
type Route struct {
	Status    int    // defaults to 200
	Body      []byte // response payload
	ChunkSize int    // when > 0, body is written and flushed in chunks of this size
	Block     <-chan struct{}
}

// ArchiveServer serves canned archives and counts requests per path.
type ArchiveServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]Route
	hits   map[string]int
}

// NewArchiveServer starts a server for the given path → route table.
// The server is closed when the test ends.
func NewArchiveServer(t *testing.T, routes map[string]Route) *ArchiveServer {
	t.Helper()

	s := &ArchiveServer{
		routes: routes,
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Hits returns how many requests reached path.
func (s *ArchiveServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *ArchiveServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	route, ok := s.routes[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if route.Block != nil {
		select {
		case <-route.Block:
		case <-r.Context().Done():
			return
		}
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if route.ChunkSize <= 0 {
		_, _ = w.Write(route.Body)
		return
	}

	flusher, _ := w.(http.Flusher)
	for start := 0; start < len(route.Body); start += route.ChunkSize {
		end := min(start+route.ChunkSize, len(route.Body))
		if _, err := w.Write(route.Body[start:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
