package pathutil

import (
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// EscapesBase reports whether the slash-separated relative path p, once
// lexically cleaned, climbs above the directory it is relative to.
// "a/../b" stays inside; "../x" and "a/../../x" do not.
func EscapesBase(p string) bool {
	clean := path.Clean(p)
	return clean == ".." || strings.HasPrefix(clean, "../")
}
