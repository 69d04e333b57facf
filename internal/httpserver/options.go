package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MShaffar19/webbundle/internal/health"
	"github.com/MShaffar19/webbundle/internal/httpmw"
	"github.com/MShaffar19/webbundle/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe
	BundleInfo   httpmw.BundleInfo

	// Routes registers named routes on the router.
	Routes func(chi.Router)

	// Fallback serves every request no route matched, including method
	// mismatches on matched patterns.
	Fallback http.Handler
}
