package commentcard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// requestLines returns the decoded "request" entries written so far.
func (b *lockedBuffer) requestLines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["message"] == "request" {
			out = append(out, entry)
		}
	}
	return out
}

func captureLog(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestRequestLogRecordsErrorStatus(t *testing.T) {
	buf := captureLog(t)
	a := newTestApp(t, Config{}, WithFetcher(&fakeFetcher{}), WithBackends(&fakeBackend{}, nil))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/card", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	lines := buf.requestLines(t)
	if len(lines) != 1 {
		t.Fatalf("expected one request line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("logged status %v, want 400", entry["status"])
	}
	if entry["level"] != "info" {
		t.Fatalf("logged level %v, want info", entry["level"])
	}
	if entry["uri"] != "/api/card" || entry["method"] != http.MethodGet {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestRequestLogRecordsServerErrors(t *testing.T) {
	buf := captureLog(t)
	backend := &fakeBackend{err: errors.New("chrome crashed")}
	a := newTestApp(t, Config{}, WithFetcher(&fakeFetcher{}), WithBackends(nil, backend))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/card/browser?"+cardQuery(t, testComment(), nil), nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != msgRenderFailed {
		t.Fatalf("error handler ran twice or not at all: %q", rec.Body.String())
	}

	lines := buf.requestLines(t)
	if len(lines) != 1 {
		t.Fatalf("expected one request line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["status"] != float64(http.StatusInternalServerError) {
		t.Fatalf("logged status %v, want 500", entry["status"])
	}
	if entry["level"] != "error" {
		t.Fatalf("logged level %v, want error", entry["level"])
	}
	if e, _ := entry["error"].(string); !strings.Contains(e, "chrome crashed") {
		t.Fatalf("logged error %q", e)
	}
}
