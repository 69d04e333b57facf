package preview

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/MShaffar19/webbundle/internal/bundle"
)

func exchange(t *testing.T, rawURL, body string) bundle.Exchange {
	t.Helper()
	return bundle.Exchange{
		Request:  bundle.NewGetRequest(mustParseURL(t, rawURL)),
		Response: bundle.NewResponse(http.StatusOK, http.Header{}, []byte(body)),
	}
}

func TestNewIndex_FirstExchangeWins(t *testing.T) {
	idx := newIndex([]bundle.Exchange{
		exchange(t, "https://a.example/x.html", "first"),
		exchange(t, "https://b.example/x.html", "second"),
	})
	if len(idx) != 1 || string(idx["/x.html"].body) != "first" {
		t.Fatalf("idx = %v", idx)
	}
}

func TestRequestKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com", "/"},
		{"https://example.com/", "/"},
		{"https://example.com/a%20b.txt", "/a%20b.txt"},
		{"https://example.com/search?q=go&n=1", "/search?q=go&n=1"},
	}
	for _, tt := range tests {
		if got := requestKey(mustParseURL(t, tt.raw)); got != tt.want {
			t.Errorf("requestKey(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolve_RejectsAmbiguousPaths(t *testing.T) {
	idx := newIndex([]bundle.Exchange{exchange(t, "https://example.com/a/b.txt", "b")})
	for _, p := range []*url.URL{
		{Path: "/a/b.txt\x00"},
		{Path: `/a\b.txt`},
		{Path: "/a/./b.txt"},
		{Path: "/a/../a/b.txt"},
	} {
		if _, _, ok := idx.resolve(p, "index.html"); ok {
			t.Errorf("resolve(%q) found an entry", p.Path)
		}
	}
	if e, _, ok := idx.resolve(&url.URL{Path: "/a/b.txt"}, "index.html"); !ok || string(e.body) != "b" {
		t.Fatal("clean path should resolve")
	}
}
