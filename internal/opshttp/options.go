package opshttp

import (
	"net/http"

	"github.com/MShaffar19/webbundle/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// OnPanic runs when a handler panic is recovered.
	OnPanic func()
}
