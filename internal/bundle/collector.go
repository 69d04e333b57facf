package bundle

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/pathutil"
)

// CollectorMetrics is implemented by the metrics package to observe traversals.
type CollectorMetrics interface {
	IncCollectedFile(bytes int)
	IncSymlinkSkipped()
	IncCollectError(errType string)
	ObserveTraversalDuration(seconds float64)
}

// CollectorOptions carries the observability hooks of a Collector.
// The zero value is valid: logs are dropped and nothing is counted.
type CollectorOptions struct {
	Logger  log.Logger
	Metrics CollectorMetrics
}

// Collector turns the regular files under a base directory into exchanges.
// It is not safe for concurrent use.
type Collector struct {
	baseDir   string
	baseURL   *url.URL
	logger    log.Logger
	metrics   CollectorMetrics
	exchanges []Exchange
}

// NewCollector returns an empty collector for baseDir. baseURL must be
// absolute; a relative one makes every exchange fail with a *URLError.
func NewCollector(baseDir string, baseURL *url.URL, opts CollectorOptions) *Collector {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Collector{
		baseDir: baseDir,
		baseURL: cloneURL(baseURL),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Traverse walks the base directory and adds an exchange for every regular
// file. Symbolic links are skipped with a warning; directories are
// descended. The first walk or read failure aborts the traversal.
//
// ctx carries the logger and trace span only: a traversal is not cancelled
// when ctx is done.
func (c *Collector) Traverse(ctx context.Context) (*Collector, error) {
	ctx, span := otel.Tracer("webbundle/bundle").Start(ctx, "bundle.traverse",
		trace.WithAttributes(attribute.String("bundle.base_dir", c.baseDir)),
	)
	defer span.End()

	start := time.Now()
	before := len(c.exchanges)

	err := c.walk(ctx)
	c.metrics.ObserveTraversalDuration(time.Since(start).Seconds())
	if err != nil {
		c.metrics.IncCollectError(errorType(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	added := len(c.exchanges) - before
	span.SetAttributes(attribute.Int("bundle.exchanges", added))
	c.logger.Debug(ctx, "collected exchanges from directory",
		"dir", c.baseDir,
		"exchanges", added,
		"duration", time.Since(start).String(),
	)
	return c, nil
}

func (c *Collector) walk(ctx context.Context) error {
	root, err := resolveRoot(c.baseDir)
	if err != nil {
		return &TraversalError{Path: c.baseDir, Err: err}
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &TraversalError{Path: p, Err: err}
		}

		switch mode := d.Type(); {
		case mode&fs.ModeSymlink != 0:
			c.logger.Warn(ctx, "path is a symbolic link, skipping", "path", p)
			c.metrics.IncSymlinkSkipped()
			return nil
		case d.IsDir():
			return nil
		case !mode.IsRegular():
			c.logger.Debug(ctx, "path is not a regular file, skipping", "path", p, "mode", mode.String())
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return &TraversalError{Path: p, Err: err}
		}
		_, err = c.Add(rel)
		return err
	})
}

// resolveRoot follows the base directory itself if it is a symlink; links
// below it are never followed.
func resolveRoot(dir string) (string, error) {
	fi, err := os.Lstat(dir)
	if err != nil {
		return "", err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return "", err
		}
		if fi, err = os.Stat(resolved); err != nil {
			return "", err
		}
		dir = resolved
	}
	if !fi.IsDir() {
		return "", errNotDirectory
	}
	return dir, nil
}

// Add builds the exchange for rel and appends it to the collected list.
func (c *Collector) Add(rel string) (*Collector, error) {
	e, err := c.ExchangeFromRelativePath(rel)
	if err != nil {
		return nil, err
	}
	c.exchanges = append(c.exchanges, e)
	c.metrics.IncCollectedFile(e.Response.Len())
	return c, nil
}

// ExchangeFromRelativePath converts one file, given by its path relative to
// the base directory, into a GET exchange whose URL is the base URL joined
// with rel and whose response carries the file's bytes.
func (c *Collector) ExchangeFromRelativePath(rel string) (Exchange, error) {
	u, err := c.urlFromRelativePath(rel)
	if err != nil {
		return Exchange{}, err
	}
	resp, err := createResponse(c.baseDir, rel)
	if err != nil {
		return Exchange{}, err
	}
	return Exchange{
		Request:  NewGetRequest(u),
		Response: resp,
	}, nil
}

// Collected hands over the accumulated exchanges in insertion order and
// leaves the collector empty.
func (c *Collector) Collected() []Exchange {
	out := c.exchanges
	c.exchanges = nil
	return out
}

func (c *Collector) urlFromRelativePath(rel string) (*url.URL, error) {
	if err := checkRelative(rel); err != nil {
		return nil, err
	}

	base := ""
	if c.baseURL != nil {
		base = c.baseURL.String()
	}
	if c.baseURL == nil || !c.baseURL.IsAbs() {
		return nil, &URLError{Base: base, Path: rel, Err: errBaseNotAbsolute}
	}

	// a Path-only reference gets percent-encoded by the url package instead
	// of being parsed, so "?" and "#" in file names stay part of the path
	joined := c.baseURL.ResolveReference(&url.URL{Path: filepath.ToSlash(rel)})
	u, err := url.Parse(joined.String())
	if err != nil {
		return nil, &URLError{Base: base, Path: rel, Err: err}
	}
	return u, nil
}

// checkRelative enforces that rel names something inside the base
// directory: not empty, not absolute, and not climbing above it.
func checkRelative(rel string) error {
	switch {
	case rel == "":
		return &InvalidPathError{Path: rel, Reason: "empty path"}
	case filepath.IsAbs(rel):
		return &InvalidPathError{Path: rel, Reason: "path is not relative"}
	case pathutil.EscapesBase(filepath.ToSlash(rel)):
		return &InvalidPathError{Path: rel, Reason: "path escapes the base directory"}
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) IncCollectedFile(int)             {}
func (nopMetrics) IncSymlinkSkipped()               {}
func (nopMetrics) IncCollectError(string)           {}
func (nopMetrics) ObserveTraversalDuration(float64) {}
