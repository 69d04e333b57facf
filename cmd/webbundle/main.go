package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MShaffar19/webbundle/internal/bundle"
	"github.com/MShaffar19/webbundle/internal/cfg"
	"github.com/MShaffar19/webbundle/internal/health"
	"github.com/MShaffar19/webbundle/internal/httpserver"
	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/metrics"
	"github.com/MShaffar19/webbundle/internal/opshttp"
	"github.com/MShaffar19/webbundle/internal/otelx"
	"github.com/MShaffar19/webbundle/internal/preview"
	"github.com/MShaffar19/webbundle/internal/prof"
	"github.com/MShaffar19/webbundle/internal/ratelimit"
	"github.com/MShaffar19/webbundle/internal/source"
	v "github.com/MShaffar19/webbundle/internal/version"
)

// drainPeriod is how long readiness fails before the servers stop.
const drainPeriod = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	stackLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
		Writer:            os.Stderr,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "cli")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"dir", conf.Dir,
		"base_url", conf.BaseURL,
		"primary_url", conf.PrimaryURL,
		"bundle_version", conf.BundleVersion,
		"remote_source", conf.Remote(),
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_tracing", conf.EnableTracing,
		"enable_pyroscope", conf.EnablePyroscope,
	)

	m := metrics.New()
	m.SetBuildInfo("cli", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "cli",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(err == nil && conf.EnablePyroscope)
	defer stopProf()

	// the collector runs on localhost, so the exporter connection is plaintext
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "cli",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	dir := conf.Dir
	if conf.Remote() {
		loader, err := source.New(ctx, source.Options{
			Logger:     L,
			Metrics:    m,
			SSMParam:   conf.SourceSSMParam,
			S3Bucket:   conf.SourceS3Bucket,
			S3Prefix:   conf.SourceS3Prefix,
			ExtractDir: conf.SourceExtractDir,
		}, conf.SourceSigningKeyARN)
		if err != nil {
			L.Error(ctx, err, "failed to create content source")
			os.Exit(1)
		}
		res, err := loader.Load(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to load content archive")
			os.Exit(1)
		}
		dir = res.Dir
	}

	b, err := buildBundle(ctx, conf, dir, bundle.CollectorOptions{Logger: L, Metrics: m})
	if err != nil {
		L.Error(ctx, err, "failed to build bundle", "dir", dir)
		os.Exit(1)
	}
	inv := bundle.NewInventory(b)
	m.SetBundle(inv.Version, inv.PrimaryURL, len(inv.Entries), inv.TotalBytes)
	L.Info(ctx, "bundle built",
		"version", inv.Version,
		"primary_url", inv.PrimaryURL,
		"exchanges", len(inv.Entries),
		"total_bytes", inv.TotalBytes,
	)

	if conf.PrintInventory {
		if err := writeInventory(os.Stdout, inv); err != nil {
			L.Error(ctx, err, "failed to write inventory")
			os.Exit(1)
		}
	}

	if conf.HTTPPort == 0 && conf.AdminPort == 0 {
		return
	}

	var gate health.ShutdownGate
	loaded := health.NewLoaded("bundle")
	loaded.MarkLoaded()
	readiness := health.All(gate.Probe(), loaded.Probe())

	var servers []*httpserver.Server

	if conf.HTTPPort > 0 {
		ph, err := preview.New(b, &preview.Options{Logger: L})
		if err != nil {
			L.Error(ctx, err, "failed to create preview handler")
			os.Exit(1)
		}

		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)

		srv, err := httpserver.Start(ctx, &httpserver.Options{
			Logger:       L,
			Port:         conf.HTTPPort,
			UseRecoverMW: true,
			OnPanic:      m.IncHTTPPanic,
			MetricsMW:    m.Middleware,
			RateLimitMW:  limiter.Middleware,
			Health:       health.Fixed(true, ""),
			Readiness:    readiness,
			BundleInfo:   ph,
			Routes:       ph.Routes,
			Fallback:     ph,
		})
		if err != nil {
			L.Error(ctx, err, "failed to start preview http listener")
			os.Exit(1)
		}
		servers = append(servers, srv)
	}

	if conf.AdminPort > 0 {
		srv, err := opshttp.Start(ctx, L, &opshttp.Options{
			Port:        conf.AdminPort,
			Metrics:     m.Handler(),
			EnablePprof: conf.EnablePprof,
			Health:      health.Fixed(true, ""),
			Readiness:   readiness,
			OnPanic:     m.IncHTTPPanic,
		})
		if err != nil {
			L.Error(ctx, err, "failed to start ops http listener")
			os.Exit(1)
		}
		servers = append(servers, srv)
	}

	<-ctx.Done()
	stop()
	L.Info(context.Background(), "shutdown signal received")

	gate.Set("draining")
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			L.Error(context.Background(), err, "http server shutdown")
		}
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}

	L.Info(context.Background(), "shutdown complete")
}

// buildBundle collects dir under conf.BaseURL. The primary URL defaults to
// the base URL.
func buildBundle(ctx context.Context, conf cfg.App, dir string, copts bundle.CollectorOptions) (*bundle.Bundle, error) {
	ver, err := bundle.ParseVersion(conf.BundleVersion)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	primary := base
	if conf.PrimaryURL != "" {
		if primary, err = url.Parse(conf.PrimaryURL); err != nil {
			return nil, fmt.Errorf("parse primary url: %w", err)
		}
	}

	b := bundle.NewBuilder().
		Version(ver).
		PrimaryURL(primary).
		CollectorOptions(copts)
	if conf.ManifestURL != "" {
		manifest, err := url.Parse(conf.ManifestURL)
		if err != nil {
			return nil, fmt.Errorf("parse manifest url: %w", err)
		}
		b.ManifestURL(manifest)
	}

	if _, err := b.ExchangesFromDir(ctx, dir, base); err != nil {
		return nil, err
	}
	return b.Build()
}

func writeInventory(w io.Writer, inv bundle.Inventory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(inv)
}
