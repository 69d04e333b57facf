// Package httpmw provides HTTP middleware for the preview server.
//
// The preview handler composes them outermost first: recovery, request
// ID, client IP, rate limiting, tracing, trace response headers, bundle
// headers, metrics, request logger, then chi with access logging and
// route annotation.
//
// Query strings and user agents stay out of log lines; only the route,
// method, path and sizes are recorded.
package httpmw
