package bundle

import (
	"net/url"

	"github.com/MShaffar19/webbundle/internal/cryptoutil"
)

// InventoryEntry describes one exchange of a bundle.
type InventoryEntry struct {
	URL           string `json:"url"`
	Status        int    `json:"status"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
	SHA256        string `json:"sha256"`
}

// Inventory is the listing of a bundle's exchanges, in bundle order.
type Inventory struct {
	Version     string           `json:"version"`
	PrimaryURL  string           `json:"primary_url"`
	ManifestURL string           `json:"manifest_url,omitempty"`
	TotalBytes  int64            `json:"total_bytes"`
	Entries     []InventoryEntry `json:"entries"`
}

// NewInventory lists b's exchanges with a SHA-256 digest of each body.
func NewInventory(b *Bundle) Inventory {
	inv := Inventory{
		Version:    b.version.String(),
		PrimaryURL: urlString(b.primaryURL),
		Entries:    make([]InventoryEntry, 0, len(b.exchanges)),
	}
	inv.ManifestURL = urlString(b.manifestURL)
	for _, e := range b.exchanges {
		inv.Entries = append(inv.Entries, InventoryEntry{
			URL:           urlString(e.Request.url),
			Status:        e.Response.status,
			ContentType:   e.Response.ContentType(),
			ContentLength: e.Response.ContentLength(),
			SHA256:        cryptoutil.SHA256Hex(e.Response.body),
		})
		inv.TotalBytes += int64(len(e.Response.body))
	}
	return inv
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
