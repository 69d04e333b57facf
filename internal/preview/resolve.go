package preview

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/MShaffar19/webbundle/internal/bundle"
	"github.com/MShaffar19/webbundle/internal/pathutil"
)

// entry is an exchange's response, copied once when the handler is built.
type entry struct {
	status int
	header http.Header
	body   []byte
}

// index maps escaped request paths, with "?query" when present, to entries.
// The first exchange for a key wins.
type index map[string]*entry

func newIndex(exchanges []bundle.Exchange) index {
	idx := make(index, len(exchanges))
	for _, e := range exchanges {
		key := requestKey(e.Request.URL())
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = &entry{
			status: e.Response.Status(),
			header: e.Response.Header(),
			body:   e.Response.Body(),
		}
	}
	return idx
}

func requestKey(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		return p + "?" + u.RawQuery
	}
	return p
}

// resolve maps a request URL to an entry.
//
// Returns:
// - e: the entry to serve
// - redirectTo: if non-empty, the caller redirects here instead
// - ok: whether anything was found
func (idx index) resolve(u *url.URL, indexFile string) (e *entry, redirectTo string, ok bool) {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}

	// basic rejection of ambiguous paths
	if strings.ContainsAny(u.Path, "\x00\\") || pathutil.HasDotSegments(u.Path) || pathutil.HasDotSegments(p) {
		return nil, "", false
	}

	if u.RawQuery != "" {
		if e, ok := idx[p+"?"+u.RawQuery]; ok {
			return e, "", true
		}
	}
	if e, ok := idx[p]; ok {
		return e, "", true
	}

	if p == "/" {
		return nil, "", false
	}
	if strings.HasSuffix(p, "/") {
		e, ok := idx[p+indexFile]
		return e, "", ok
	}
	if path.Ext(p) == "" {
		if _, ok := idx[p+"/"+indexFile]; ok {
			return nil, p + "/", true
		}
	}
	return nil, "", false
}
