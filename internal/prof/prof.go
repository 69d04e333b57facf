// Package prof pushes continuous profiles to a Pyroscope server.
package prof

import (
	"context"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	TenantID      string
	Tags          map[string]string

	// Non-zero values turn on the runtime's mutex and block profiling.
	ProfileMutexFraction int
	BlockProfileRate     int
}

// StopFunc stops profiling. It is safe to call more than once.
type StopFunc func()

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

func pyroscopeConfig(opts Options) (pyroscope.Config, error) {
	if opts.ServerAddress == "" {
		return pyroscope.Config{}, xerrors.New("pyroscope server address is required")
	}
	if opts.AppName == "" {
		return pyroscope.Config{}, xerrors.New("pyroscope application name is required")
	}
	return pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes,
	}, nil
}

// Start begins profiling when opts.Enabled is set. A disabled or failed
// start still returns a usable StopFunc.
func Start(ctx context.Context, opts Options) (StopFunc, error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !opts.Enabled {
		L.Debug(ctx, "pyroscope disabled")
		return noop, nil
	}
	cfg, err := pyroscopeConfig(opts)
	if err != nil {
		return noop, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		return noop, xerrors.Wrapf(err, "start pyroscope for %s", opts.ServerAddress)
	}
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		_ = profiler.Stop()
		L.Info(context.Background(), "pyroscope stopped", "server_address", opts.ServerAddress)
	}, nil
}
