// Package health provides composable probes and the handlers behind the
// /-/healthy and /-/ready endpoints.
//
// [ShutdownGate] fails readiness as soon as draining starts so load
// balancers stop routing before the servers shut down. [Loaded] keeps
// readiness failing until the bundle has been built.
package health
