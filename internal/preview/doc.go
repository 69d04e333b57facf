// Package preview serves a built bundle over HTTP so its exchanges can be
// inspected with a browser or curl.
//
// Each request is matched against the exchanges' URL paths (query
// included when the exchange has one). A trailing slash serves that
// directory's index.html, an extensionless path with such an index
// redirects to the slash form, and "/" redirects to the bundle's primary
// URL when no exchange lives there. Matched exchanges are written back
// verbatim: status, headers and body.
package preview
