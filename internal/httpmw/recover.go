package httpmw

import (
	"net/http"

	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/xerrors"
)

// Recover turns a handler panic into a logged error and a 500 response.
// onPanic, when set, runs after logging. http.ErrAbortHandler is re-raised.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				var err error
				if e, ok := v.(error); ok {
					err = xerrors.EnsureTrace(e)
				} else {
					err = xerrors.Newf("panic: %v", v)
				}
				L.Error(r.Context(), err, "http handler panic recovered",
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
				)
				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
