package httpmw

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BundleInfo describes the bundle being served.
type BundleInfo interface {
	BundleVersion() string
	ExchangeCount() int
}

// BundleHeaders adds X-Bundle-Version and X-Bundle-Exchanges to every
// response and tags the recording span with the same values.
func BundleHeaders(info BundleInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, n := info.BundleVersion(), info.ExchangeCount()
			if v != "" {
				w.Header().Set("X-Bundle-Version", v)
			}
			w.Header().Set("X-Bundle-Exchanges", strconv.Itoa(n))

			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("bundle.version", v),
					attribute.Int("bundle.exchanges", n),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
