package preview

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MShaffar19/webbundle/internal/bundle"
	"github.com/MShaffar19/webbundle/internal/log"
)

// Handler serves the exchanges of one bundle. It is safe for concurrent use.
type Handler struct {
	opts        Options
	version     string
	exchanges   int
	primaryPath string
	idx         index
	inventory   []byte
}

func New(b *bundle.Bundle, opts *Options) (*Handler, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: bundle is nil", ErrInvalidOptions)
	}
	o := *opts
	o.setDefaults()

	inv, err := json.Marshal(bundle.NewInventory(b))
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}

	primary := "/"
	if u := b.PrimaryURL(); u != nil && u.EscapedPath() != "" {
		primary = u.EscapedPath()
	}

	return &Handler{
		opts:        o,
		version:     b.Version().String(),
		exchanges:   b.Len(),
		primaryPath: primary,
		idx:         newIndex(b.Exchanges()),
		inventory:   inv,
	}, nil
}

func (h *Handler) BundleVersion() string { return h.version }
func (h *Handler) ExchangeCount() int    { return h.exchanges }

// Routes registers the inventory endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Get(h.opts.InventoryPath, h.serveInventory)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	e, redirectTo, found := h.idx.resolve(r.URL, h.opts.IndexFile)
	if redirectTo != "" {
		// 308 keeps the method
		http.Redirect(w, r, redirectTo, http.StatusPermanentRedirect)
		return
	}
	if !found {
		if r.URL.Path == "/" && h.primaryPath != "/" {
			http.Redirect(w, r, h.primaryPath, http.StatusPermanentRedirect)
			return
		}
		h.serveNotFound(w, r)
		return
	}

	hdr := w.Header()
	for k, vs := range e.header {
		hdr[k] = append([]string(nil), vs...)
	}
	w.WriteHeader(e.status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(e.body); err != nil {
		log.FromContext(r.Context()).Debug(r.Context(), "write exchange body failed", "error", err.Error())
	}
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).Debug(r.Context(), "no exchange for request path")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

func (h *Handler) serveInventory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.inventory)
}
