package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/MShaffar19/webbundle/internal/health"
	"github.com/MShaffar19/webbundle/internal/httpmw"
	"github.com/MShaffar19/webbundle/internal/httpserver"
	"github.com/MShaffar19/webbundle/internal/log"
)

// NewHandler serves /metrics, /-/healthy, /-/ready and, when enabled,
// /debug/pprof/. Requests from public addresses are refused.
func NewHandler(L log.Logger, opts *Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	return httpmw.Recover(L, opts.OnPanic)(requireNonPublicNetwork(L, mux))
}

// RegisterPprof mounts the net/http/pprof handlers on mux.
func RegisterPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// Start the admin server on opts.Port, 9000 when unset.
func Start(ctx context.Context, L log.Logger, opts *Options) (*httpserver.Server, error) {
	port := opts.Port
	if port == 0 {
		port = 9000
	}
	return httpserver.Listen(ctx, L, "ops", fmt.Sprintf(":%d", port), NewHandler(L, opts))
}

// requireNonPublicNetwork only lets loopback, private and link-local peers
// through; everyone else gets 403.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !nonPublicPeer(r.RemoteAddr) {
			L.Warn(r.Context(), "ops request from public address refused", "remote_addr", r.RemoteAddr, "url.path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func nonPublicPeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
