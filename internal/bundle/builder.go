package bundle

import (
	"context"
	"net/url"
)

// Builder accumulates the pieces of a bundle. Setters return the builder so
// calls can be chained; Build checks the required fields and finalizes.
//
//	b, err := bundle.NewBuilder().
//		Version(bundle.VersionB2).
//		PrimaryURL(primary).
//		ExchangesFromDir(ctx, "assets", base)
//	if err != nil { ... }
//	bndl, err := b.Build()
type Builder struct {
	version     *Version
	primaryURL  *url.URL
	manifestURL *url.URL
	exchanges   []Exchange

	collectorOpts CollectorOptions
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Version(v Version) *Builder {
	b.version = &v
	return b
}

func (b *Builder) PrimaryURL(u *url.URL) *Builder {
	b.primaryURL = cloneURL(u)
	return b
}

func (b *Builder) ManifestURL(u *url.URL) *Builder {
	b.manifestURL = cloneURL(u)
	return b
}

// Exchange appends a single exchange.
func (b *Builder) Exchange(e Exchange) *Builder {
	b.exchanges = append(b.exchanges, e)
	return b
}

// CollectorOptions sets the logger and metrics used by ExchangesFromDir.
func (b *Builder) CollectorOptions(opts CollectorOptions) *Builder {
	b.collectorOpts = opts
	return b
}

// ExchangesFromDir appends one exchange per regular file under dir. Each
// file's path relative to dir is joined onto baseURL to form its URL.
// Exchanges are appended in traversal order.
//
// On failure the builder is returned unchanged together with a
// *ConfigurationError wrapping the collector's error.
func (b *Builder) ExchangesFromDir(ctx context.Context, dir string, baseURL *url.URL) (*Builder, error) {
	c, err := NewCollector(dir, baseURL, b.collectorOpts).Traverse(ctx)
	if err != nil {
		return b, &ConfigurationError{Dir: dir, Err: err}
	}
	b.exchanges = append(b.exchanges, c.Collected()...)
	return b, nil
}

// Build finalizes the bundle. It fails only when the version or the primary
// URL is missing; the manifest URL and the exchange list may be empty.
func (b *Builder) Build() (*Bundle, error) {
	if b.version == nil {
		return nil, &MissingFieldError{Field: "version"}
	}
	if b.primaryURL == nil {
		return nil, &MissingFieldError{Field: "primary_url"}
	}
	exchanges := make([]Exchange, len(b.exchanges))
	copy(exchanges, b.exchanges)
	return &Bundle{
		version:     *b.version,
		primaryURL:  cloneURL(b.primaryURL),
		manifestURL: cloneURL(b.manifestURL),
		exchanges:   exchanges,
	}, nil
}
