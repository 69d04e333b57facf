// Package mimetype guesses a content type from a file name's extension.
//
// Lookups never look at file contents. A built-in table is consulted first so
// common web asset types do not depend on the host's MIME database; the
// system database (via the mime package) covers the rest, and anything
// unknown falls back to application/octet-stream.
package mimetype

import (
	"mime"
	"path"
	"path/filepath"
	"strings"
)

// Default is returned when no type is known for an extension.
const Default = "application/octet-stream"

var builtin = map[string]string{
	// documents
	".html":        "text/html",
	".htm":         "text/html",
	".xhtml":       "application/xhtml+xml",
	".css":         "text/css",
	".js":          "text/javascript",
	".mjs":         "text/javascript",
	".json":        "application/json",
	".map":         "application/json",
	".webmanifest": "application/manifest+json",
	".xml":         "application/xml",
	".txt":         "text/plain",
	".md":          "text/markdown",
	".csv":         "text/csv",
	".pdf":         "application/pdf",
	".wasm":        "application/wasm",

	// images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",

	// fonts
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",

	// media
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// ByPath returns the media type for p's extension, without parameters
// (no "; charset=..."). It is total: unknown or missing extensions yield
// Default.
func ByPath(p string) string {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(p)))
	if ext == "" {
		return Default
	}
	if t, ok := builtin[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return Default
}
