// Package cfg holds the command-line configuration of webbundle. Every flag
// can also be set from the environment: flag "base-url" is read from
// WEBBUNDLE_BASE_URL when not passed on the command line.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/MShaffar19/webbundle/internal/bundle"
	"github.com/MShaffar19/webbundle/internal/log"
)

// EnvPrefix is prepended to the upper-cased flag name to form its env var.
const EnvPrefix = "WEBBUNDLE_"

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	// bundle
	Dir            string
	BaseURL        string
	PrimaryURL     string
	ManifestURL    string
	BundleVersion  string
	PrintInventory bool

	// remote source, used when Dir is empty
	SourceSSMParam      string
	SourceS3Bucket      string
	SourceS3Prefix      string
	SourceSigningKeyARN string
	SourceExtractDir    string

	// preview and ops servers, 0 disables
	HTTPPort       int
	AdminPort      int
	EnablePprof    bool
	RateLimitRPS   float64
	RateLimitBurst int

	EnableTracing bool
	OTLPEndpoint  string
	TraceSample   float64

	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", false, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", false, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 8, "max error chain depth (1..64)")

	fs.StringVar(&c.Dir, "dir", "", "directory to bundle (leave empty to use the remote source)")
	fs.StringVar(&c.BaseURL, "base-url", "", "absolute URL each file's relative path is joined onto")
	fs.StringVar(&c.PrimaryURL, "primary-url", "", "bundle entry point URL (defaults to base-url)")
	fs.StringVar(&c.ManifestURL, "manifest-url", "", "optional manifest URL")
	fs.StringVar(&c.BundleVersion, "bundle-version", string(bundle.VersionB2), "b1|b2|1")
	fs.BoolVar(&c.PrintInventory, "print-inventory", true, "print the bundle inventory as JSON to stdout")

	fs.StringVar(&c.SourceSSMParam, "source-ssm-param", "", "ssm parameter holding the sha256 of the current content archive")
	fs.StringVar(&c.SourceS3Bucket, "source-s3-bucket", "", "s3 bucket holding content archives")
	fs.StringVar(&c.SourceS3Prefix, "source-s3-prefix", "", "s3 key prefix of content archives")
	fs.StringVar(&c.SourceSigningKeyARN, "source-signing-key-arn", "", "KMS key ARN verifying archive signatures (empty skips verification)")
	fs.StringVar(&c.SourceExtractDir, "source-extract-dir", "", "directory archives are extracted under (defaults to a temp dir)")

	fs.IntVar(&c.HTTPPort, "http-port", 0, "preview server TCP port (0 disables, else 1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 0, "metrics/health server TCP port (0 disables, else 1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", false, "Enable pprof handlers (on admin port only)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 50, "preview requests per second per client")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 100, "preview request burst per client")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Remote reports whether content comes from the S3/SSM source rather than
// a local directory.
func (c App) Remote() bool { return c.Dir == "" }

// Validate reports every invalid field at once, or nil.
func Validate(c App) error {
	var errs []error

	// content
	if c.Dir != "" && (c.SourceS3Bucket != "" || c.SourceSSMParam != "") {
		errs = append(errs, errors.New("DIR and SOURCE_* are mutually exclusive"))
	}
	if c.Remote() {
		if c.SourceSSMParam == "" {
			errs = append(errs, errors.New("SOURCE_SSM_PARAM is required when DIR is empty"))
		}
		if c.SourceS3Bucket == "" {
			errs = append(errs, errors.New("SOURCE_S3_BUCKET is required when DIR is empty"))
		}
		if c.SourceS3Prefix == "" {
			errs = append(errs, errors.New("SOURCE_S3_PREFIX is required when DIR is empty"))
		}
	}

	// urls
	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	} else if err := absoluteURL(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid BASE_URL: %w", err))
	}
	if c.PrimaryURL != "" {
		if err := absoluteURL(c.PrimaryURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid PRIMARY_URL: %w", err))
		}
	}
	if c.ManifestURL != "" {
		if err := absoluteURL(c.ManifestURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid MANIFEST_URL: %w", err))
		}
	}
	if _, err := bundle.ParseVersion(c.BundleVersion); err != nil {
		errs = append(errs, fmt.Errorf("invalid BUNDLE_VERSION: %w", err))
	}

	// ports
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 0..65535)", c.HTTPPort))
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 0..65535)", c.AdminPort))
	}
	if c.AdminPort != 0 && c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.HTTPPort != 0 {
		if c.RateLimitRPS <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be > 0 (got %g)", c.RateLimitRPS))
		}
		if c.RateLimitBurst < 1 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst))
		}
	}

	// logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	// tracing (grpc exporter wants host:port, no scheme)
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// profiling
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if err := absoluteURL(c.PyroServer); err != nil {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, errors.New("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	return errors.Join(errs...)
}

func absoluteURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", s)
	}
	return nil
}
