package bundle

import (
	"net/url"
	"slices"
)

// Bundle is a finalized, immutable web bundle. Build one with a Builder.
type Bundle struct {
	version     Version
	primaryURL  *url.URL
	manifestURL *url.URL
	exchanges   []Exchange
}

func (b *Bundle) Version() Version { return b.version }

// PrimaryURL returns a copy of the bundle's entry point URL.
func (b *Bundle) PrimaryURL() *url.URL { return cloneURL(b.primaryURL) }

// ManifestURL returns a copy of the manifest URL, or nil when none was set.
func (b *Bundle) ManifestURL() *url.URL { return cloneURL(b.manifestURL) }

// Exchanges returns the exchanges in the order they were added.
// The returned slice is a copy; exchanges themselves are immutable.
func (b *Bundle) Exchanges() []Exchange { return slices.Clone(b.exchanges) }

// Len is the number of exchanges.
func (b *Bundle) Len() int { return len(b.exchanges) }
