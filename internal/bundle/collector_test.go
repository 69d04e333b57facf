package bundle

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
)

func traverse(t *testing.T, dir, base string, opts CollectorOptions) []Exchange {
	t.Helper()
	c, err := NewCollector(dir, mustParseURL(t, base), opts).Traverse(context.Background())
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	return c.Collected()
}

func TestTraverse_Idempotent(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":       "<html></html>",
		"js/hello.js":      "hello()",
		"css/site.css":     "body{}",
		"img/deep/a/b.png": "\x89PNG",
	})

	first := urlSet(traverse(t, dir, "https://example.com/", CollectorOptions{}))
	second := urlSet(traverse(t, dir, "https://example.com/", CollectorOptions{}))

	if len(first) != 4 {
		t.Fatalf("exchanges = %v, want 4", first)
	}
	if !slices.Equal(first, second) {
		t.Fatalf("traversals differ:\n%v\n%v", first, second)
	}
}

func TestTraverse_EmptyDir(t *testing.T) {
	if got := traverse(t, t.TempDir(), "https://example.com/", CollectorOptions{}); len(got) != 0 {
		t.Fatalf("exchanges = %d, want 0", len(got))
	}
}

func TestTraverse_SkipsSymlinks(t *testing.T) {
	outside := writeTree(t, map[string]string{"secret.txt": "s"})
	dir := writeTree(t, map[string]string{
		"index.html":  "<html></html>",
		"sub/keep.js": "k",
	})
	symlinkOrSkip(t, filepath.Join(dir, "index.html"), filepath.Join(dir, "link-to-file.html"))
	symlinkOrSkip(t, outside, filepath.Join(dir, "link-to-dir"))
	symlinkOrSkip(t, filepath.Join(dir, "nowhere"), filepath.Join(dir, "sub", "dangling"))

	spy := newSpyLogger()
	m := &spyMetrics{}
	got := urlSet(traverse(t, dir, "https://example.com/", CollectorOptions{Logger: spy, Metrics: m}))

	want := []string{"https://example.com/index.html", "https://example.com/sub/keep.js"}
	if !slices.Equal(got, want) {
		t.Fatalf("urls = %v, want %v", got, want)
	}
	if n := len(spy.warnings()); n != 3 {
		t.Fatalf("warnings = %d, want one per symlink", n)
	}
	for _, w := range spy.warnings() {
		if len(w.kv) < 2 || w.kv[0] != "path" {
			t.Fatalf("warning %q should carry the link path, got %v", w.msg, w.kv)
		}
	}
	if m.symlinks != 3 {
		t.Fatalf("symlink metric = %d, want 3", m.symlinks)
	}
}

func TestTraverse_RootSymlinkIsFollowed(t *testing.T) {
	target := writeTree(t, map[string]string{"index.html": "<html></html>"})
	link := filepath.Join(t.TempDir(), "site")
	symlinkOrSkip(t, target, link)

	got := urlSet(traverse(t, link, "https://example.com/", CollectorOptions{}))
	if !slices.Equal(got, []string{"https://example.com/index.html"}) {
		t.Fatalf("urls = %v", got)
	}
}

func TestTraverse_ContentLengthRoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte{0x00, 0xff, 'a', '\n'}, 64*1024)
	files := map[string]string{
		"empty.txt":  "",
		"one.txt":    "1",
		"binary.bin": string(large),
		"utf8.html":  "<p>héllo wörld</p>",
	}
	dir := writeTree(t, files)

	for _, e := range traverse(t, dir, "https://example.com/", CollectorOptions{}) {
		rel := e.Request.URL().Path[1:]
		want := []byte(files[rel])

		onDisk, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(e.Response.Body(), onDisk) || !bytes.Equal(onDisk, want) {
			t.Errorf("%s: body does not match file bytes", rel)
		}
		if got := e.Response.Header().Get("Content-Length"); got != strconv.Itoa(len(onDisk)) {
			t.Errorf("%s: Content-Length = %q, want %d", rel, got, len(onDisk))
		}
		if e.Response.ContentLength() != int64(e.Response.Len()) {
			t.Errorf("%s: ContentLength %d != body length %d", rel, e.Response.ContentLength(), e.Response.Len())
		}
	}
}

func TestTraverse_MetricsAndCollectedResets(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "aaa", "b.txt": "bb"})
	m := &spyMetrics{}
	c, err := NewCollector(dir, mustParseURL(t, "https://example.com/"), CollectorOptions{Metrics: m}).Traverse(context.Background())
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if m.files != 2 || m.bytes != 5 || m.durations != 1 {
		t.Fatalf("metrics files=%d bytes=%d durations=%d", m.files, m.bytes, m.durations)
	}
	if got := c.Collected(); len(got) != 2 {
		t.Fatalf("Collected = %d, want 2", len(got))
	}
	if got := c.Collected(); len(got) != 0 {
		t.Fatalf("second Collected = %d, want 0", len(got))
	}
}

func TestTraverse_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{"file.txt": "x"})

	tests := []struct {
		name    string
		dir     string
		is      error
		errType string
	}{
		{"missing dir", filepath.Join(dir, "missing"), fs.ErrNotExist, "traversal"},
		{"not a directory", filepath.Join(dir, "file.txt"), errNotDirectory, "traversal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &spyMetrics{}
			c, err := NewCollector(tt.dir, mustParseURL(t, "https://example.com/"), CollectorOptions{Metrics: m}).Traverse(context.Background())
			if c != nil {
				t.Fatal("Traverse should return nil collector on error")
			}
			var te *TraversalError
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *TraversalError", err)
			}
			if !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v in chain", err, tt.is)
			}
			if !slices.Equal(m.errTypes, []string{tt.errType}) {
				t.Fatalf("error metric = %v, want [%s]", m.errTypes, tt.errType)
			}
		})
	}
}

func TestTraverse_UnreadableFileAborts(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	dir := writeTree(t, map[string]string{"ok.txt": "ok", "locked.txt": "no"})
	locked := filepath.Join(dir, "locked.txt")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o644) })

	_, err := NewCollector(dir, mustParseURL(t, "https://example.com/"), CollectorOptions{}).Traverse(context.Background())
	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("err = %v, want *IOError", err)
	}
	if ioe.Kind != IOErrorPermissionDenied {
		t.Fatalf("kind = %v, want permission denied", ioe.Kind)
	}
}

func TestExchangeFromRelativePath(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":   "<html></html>",
		"a b.txt":      "space",
		"q?x.html":     "query-like",
		"docs/x.json":  "{}",
		"docs/y/z.css": "p{}",
	})
	c := NewCollector(dir, mustParseURL(t, "https://example.com/site/"), CollectorOptions{})

	tests := []struct {
		rel     string
		wantURL string
		wantCT  string
	}{
		{"index.html", "https://example.com/site/index.html", "text/html"},
		{"a b.txt", "https://example.com/site/a%20b.txt", "text/plain"},
		{"q?x.html", "https://example.com/site/q%3Fx.html", "text/html"},
		{"docs/x.json", "https://example.com/site/docs/x.json", "application/json"},
		{"docs/../docs/y/z.css", "https://example.com/site/docs/y/z.css", "text/css"},
		{"./index.html", "https://example.com/site/index.html", "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			e, err := c.ExchangeFromRelativePath(tt.rel)
			if err != nil {
				t.Fatalf("ExchangeFromRelativePath: %v", err)
			}
			if got := e.Request.URL().String(); got != tt.wantURL {
				t.Fatalf("url = %q, want %q", got, tt.wantURL)
			}
			if got := e.Response.ContentType(); got != tt.wantCT {
				t.Fatalf("content type = %q, want %q", got, tt.wantCT)
			}
		})
	}
}

func TestExchangeFromRelativePath_SingleFileLength(t *testing.T) {
	c := NewCollector(filepath.Join("testdata", "builder"), mustParseURL(t, "https://example.com/"), CollectorOptions{})

	e, err := c.ExchangeFromRelativePath("index.html")
	if err != nil {
		t.Fatalf("ExchangeFromRelativePath: %v", err)
	}
	fi, err := os.Stat(filepath.Join("testdata", "builder", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if e.Response.ContentLength() != fi.Size() {
		t.Fatalf("Content-Length = %d, want %d", e.Response.ContentLength(), fi.Size())
	}
	if string(e.Response.Body()) != "<html></html>" {
		t.Fatalf("body = %q", e.Response.Body())
	}
}

func TestExchangeFromRelativePath_Rejects(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "x"})
	abs, err := filepath.Abs(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector(dir, mustParseURL(t, "https://example.com/"), CollectorOptions{})

	for _, rel := range []string{"", abs, "../index.html", "a/../../index.html", ".."} {
		t.Run(rel, func(t *testing.T) {
			_, err := c.ExchangeFromRelativePath(rel)
			var ip *InvalidPathError
			if !errors.As(err, &ip) {
				t.Fatalf("err = %v, want *InvalidPathError", err)
			}
			if ip.Path != rel {
				t.Fatalf("Path = %q, want %q", ip.Path, rel)
			}
		})
	}
}

func TestExchangeFromRelativePath_NotFound(t *testing.T) {
	c := NewCollector(t.TempDir(), mustParseURL(t, "https://example.com/"), CollectorOptions{})

	_, err := c.ExchangeFromRelativePath("missing.html")
	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("err = %v, want *IOError", err)
	}
	if ioe.Kind != IOErrorNotFound {
		t.Fatalf("kind = %v, want not found", ioe.Kind)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("IOError should unwrap to fs.ErrNotExist")
	}
}

func TestExchangeFromRelativePath_RelativeBaseURL(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "x"})

	for _, base := range []string{"/site/", "site"} {
		t.Run(base, func(t *testing.T) {
			c := NewCollector(dir, mustParseURL(t, base), CollectorOptions{})
			_, err := c.ExchangeFromRelativePath("index.html")
			var ue *URLError
			if !errors.As(err, &ue) {
				t.Fatalf("err = %v, want *URLError", err)
			}
			if !errors.Is(err, errBaseNotAbsolute) {
				t.Fatalf("err = %v, want base not absolute", err)
			}
		})
	}

	c := NewCollector(dir, nil, CollectorOptions{})
	if _, err := c.ExchangeFromRelativePath("index.html"); !errors.Is(err, errBaseNotAbsolute) {
		t.Fatalf("nil base: err = %v", err)
	}
}

func TestAdd_AppendsInCallOrder(t *testing.T) {
	dir := writeTree(t, map[string]string{"b.txt": "b", "a.txt": "a"})
	c := NewCollector(dir, mustParseURL(t, "https://example.com/"), CollectorOptions{})

	for _, rel := range []string{"b.txt", "a.txt", "b.txt"} {
		if _, err := c.Add(rel); err != nil {
			t.Fatalf("Add(%s): %v", rel, err)
		}
	}
	var got []string
	for _, e := range c.Collected() {
		got = append(got, e.Request.URL().Path)
	}
	if want := []string{"/b.txt", "/a.txt", "/b.txt"}; !slices.Equal(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestAdd_FailureKeepsCollected(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "a"})
	c := NewCollector(dir, mustParseURL(t, "https://example.com/"), CollectorOptions{})

	if _, err := c.Add("a.txt"); err != nil {
		t.Fatal(err)
	}
	if got, err := c.Add("missing.txt"); err == nil || got != nil {
		t.Fatalf("Add(missing) = %v, %v", got, err)
	}
	if n := len(c.Collected()); n != 1 {
		t.Fatalf("collected = %d, want 1", n)
	}
}
