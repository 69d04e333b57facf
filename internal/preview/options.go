package preview

import (
	"errors"

	"github.com/MShaffar19/webbundle/internal/log"
)

var ErrInvalidOptions = errors.New("preview: invalid options")

type Options struct {
	Logger log.Logger

	// IndexFile is served for paths ending in "/". Default "index.html".
	IndexFile string

	// InventoryPath is where the JSON inventory is served. Default
	// "/-/inventory".
	InventoryPath string
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.InventoryPath == "" {
		o.InventoryPath = "/-/inventory"
	}
}
