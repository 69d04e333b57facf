package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MShaffar19/webbundle/internal/health"
	"github.com/MShaffar19/webbundle/internal/log"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func get(t *testing.T, h http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_Endpoints(t *testing.T) {
	var gate health.ShutdownGate
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# HELP fake_metric\n")
	})

	tests := []struct {
		name   string
		opts   Options
		drain  bool
		path   string
		status int
		body   string
	}{
		{"healthy", Options{Health: health.Fixed(true, "")}, false, "/-/healthy", http.StatusOK, "ok"},
		{"unhealthy", Options{Health: health.Fixed(false, "something broke")}, false, "/-/healthy", http.StatusServiceUnavailable, "something broke"},
		{"ready", Options{Readiness: gate.Probe()}, false, "/-/ready", http.StatusOK, "ready"},
		{"draining", Options{Readiness: gate.Probe()}, true, "/-/ready", http.StatusServiceUnavailable, "draining"},
		{"metrics", Options{Metrics: metrics}, false, "/metrics", http.StatusOK, "fake_metric"},
		{"no metrics", Options{}, false, "/metrics", http.StatusNotFound, ""},
		{"pprof on", Options{EnablePprof: true}, false, "/debug/pprof/", http.StatusOK, ""},
		{"pprof off", Options{}, false, "/debug/pprof/", http.StatusNotFound, ""},
		{"pprof off subpath", Options{}, false, "/debug/pprof/heap", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate.Clear()
			if tt.drain {
				gate.Set("")
			}
			rec := get(t, NewHandler(log.Nop(), &tt.opts), tt.path, "127.0.0.1:5000")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestRequireNonPublicNetwork(t *testing.T) {
	tests := []struct {
		addr    string
		allowed bool
	}{
		{"127.0.0.1:12345", true},
		{"[::1]:12345", true},
		{"10.0.0.1:8080", true},
		{"172.16.0.1:8080", true},
		{"192.168.1.1:8080", true},
		{"169.254.1.1:8080", true},
		{"[::ffff:10.0.0.1]:12345", true},
		{"8.8.8.8:12345", false},
		{"203.0.113.1:80", false},
		{"[::ffff:8.8.8.8]:12345", false},
		{"999.999.999.999:8080", false},
		{"not-an-address", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			reached := false
			h := requireNonPublicNetwork(log.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))
			rec := get(t, h, "/-/healthy", tt.addr)
			if reached != tt.allowed {
				t.Fatalf("reached = %v, want %v", reached, tt.allowed)
			}
			if !tt.allowed && rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
		})
	}
}

func TestNewHandler_RecoversPanics(t *testing.T) {
	panics := 0
	h := NewHandler(log.Nop(), &Options{
		Metrics: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("collector bug") }),
		OnPanic: func() { panics++ },
	})
	if rec := get(t, h, "/metrics", "127.0.0.1:1"); rec.Code != http.StatusInternalServerError || panics != 1 {
		t.Fatalf("status = %d, panics = %d", rec.Code, panics)
	}
}

func TestStart_StopIdempotent(t *testing.T) {
	ctx := context.Background()
	port := freePort(t)
	s, err := Start(ctx, log.Nop(), &Options{Port: port})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/-/healthy", port))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Stop(sctx); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := s.Stop(sctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
