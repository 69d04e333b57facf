package bundle

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/MShaffar19/webbundle/internal/log"
)

// spyLogger records warnings and passes everything else to Nop.
type spyLogger struct {
	log.Logger
	mu    sync.Mutex
	warns []spyEntry
}

type spyEntry struct {
	msg string
	kv  []any
}

func newSpyLogger() *spyLogger { return &spyLogger{Logger: log.Nop()} }

func (s *spyLogger) Warn(_ context.Context, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warns = append(s.warns, spyEntry{msg: msg, kv: kv})
}

func (s *spyLogger) warnings() []spyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyEntry(nil), s.warns...)
}

// spyMetrics counts collector observations.
type spyMetrics struct {
	files     int
	bytes     int
	symlinks  int
	errTypes  []string
	durations int
}

func (m *spyMetrics) IncCollectedFile(n int) {
	m.files++
	m.bytes += n
}

func (m *spyMetrics) IncSymlinkSkipped()               { m.symlinks++ }
func (m *spyMetrics) IncCollectError(t string)         { m.errTypes = append(m.errTypes, t) }
func (m *spyMetrics) ObserveTraversalDuration(float64) { m.durations++ }

func mustParseURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return u
}

// writeTree creates files (relative path -> content) under a fresh temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported here: %v", err)
	}
}

// urlSet returns the sorted request URLs of exchanges.
func urlSet(exchanges []Exchange) []string {
	out := make([]string, 0, len(exchanges))
	for _, e := range exchanges {
		out = append(out, e.Request.URL().String())
	}
	sort.Strings(out)
	return out
}
