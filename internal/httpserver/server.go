package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MShaffar19/webbundle/internal/health"
	"github.com/MShaffar19/webbundle/internal/httpmw"
	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/xerrors"
)

// NewHandler builds the preview handler: routes on a chi router wrapped in
// the middleware stack.
func NewHandler(opts *Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())

	r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))

	if opts.Routes != nil {
		opts.Routes(r)
	}
	if opts.Fallback != nil {
		r.NotFound(opts.Fallback.ServeHTTP)
		r.MethodNotAllowed(opts.Fallback.ServeHTTP)
	}

	var recoverMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}

	traced := otelhttp.NewMiddleware("http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/-/healthy" && r.URL.Path != "/-/ready"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute renames the span once the route is known
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)

	return httpmw.Chain(r,
		recoverMW,
		httpmw.RequestID("X-Request-Id"),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		traced,
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		httpmw.BundleHeaders(opts.BundleInfo),
		opts.MetricsMW,
		httpmw.WithLogger(opts.Logger),
	)
}

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
	DefaultShutdownTimeout   = 5 * time.Second
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Server is a listening HTTP server.
type Server struct {
	name string
	L    log.Logger
	srv  *http.Server
	ln   net.Listener

	once    sync.Once
	stopErr error
}

// Listen binds addr and serves handler in the background. name labels log
// lines ("preview", "ops").
func Listen(ctx context.Context, L log.Logger, name, addr string, handler http.Handler) (*Server, error) {
	if L == nil {
		L = log.Nop()
	}
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen %s server on %s", name, addr)
	}

	s := &Server{name: name, L: L, srv: NewServer(addr, handler), ln: ln}
	go func() {
		L.Info(ctx, "http server listening", "server", name, "addr", s.Addr())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, "http server error", "server", name)
		}
	}()
	return s, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Stop shuts the server down gracefully. Later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.once.Do(func() {
		s.L.Info(ctx, "http server shutting down", "server", s.name)
		c, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
		s.stopErr = s.srv.Shutdown(c)
	})
	return s.stopErr
}

// Start serves NewHandler(opts) on opts.Port, 8080 when unset.
func Start(ctx context.Context, opts *Options) (*Server, error) {
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	return Listen(ctx, opts.Logger, "preview", fmt.Sprintf(":%d", port), NewHandler(opts))
}
