package health

import (
	"context"
	"sync/atomic"

	"github.com/MShaffar19/webbundle/internal/xerrors"
)

// Probe is evaluated at request time: nil is OK, non-nil fails with reason.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed returns a probe that always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// All passes only if every non-nil probe passes and returns the first error.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// ShutdownGate fails its probe once draining starts.
type ShutdownGate struct {
	draining atomic.Bool
	reason   atomic.Value
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(reason)
	g.draining.Store(true)
}

func (g *ShutdownGate) Clear() {
	g.draining.Store(false)
	g.reason.Store("")
}

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		r, _ := g.reason.Load().(string)
		if r == "" {
			r = "draining"
		}
		return xerrors.New(r)
	}
}

// Loaded fails until MarkLoaded is called; the preview is not ready before
// a bundle has been built.
type Loaded struct {
	what string
	done atomic.Bool
}

func NewLoaded(what string) *Loaded { return &Loaded{what: what} }

func (l *Loaded) MarkLoaded() { l.done.Store(true) }

func (l *Loaded) Probe() CheckFunc {
	return func(context.Context) error {
		if l.done.Load() {
			return nil
		}
		return xerrors.Newf("%s: not loaded", l.what)
	}
}
