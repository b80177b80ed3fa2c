// Package api defines the public contracts of the system: the shape
// the server and the client library present to the outside world. It
// mirrors the teacher's api package (one small interface per concern,
// each with a trivial reference implementation) but each interface is
// rebound to this domain's actual surface instead of a generic plugin
// model.
package api

import "time"

// Client is the contract client.Client implements: the init/cleanup
// pair spec.md §4.4 names, replacing the teacher's api.Plugin
// (Start/Stop/Reload of a loaded plugin) with the client library's own
// connection lifecycle.
type Client interface {
	Init() error
	Cleanup() error
}

// Server is the start/stop contract of the server: start the dispatch
// loop and shut it down, replacing the teacher's api.Lifecycle
// (StartPlugin/StopPlugin/ReloadPlugin by plugin ID) with the single
// server singleton's start/stop. server.Dispatcher does not implement
// it: its loop runs via Run, and its Shutdown takes a
// workerpool.ShutdownMode rather than a bool.
type Server interface {
	Start() error
	Shutdown(drain bool) error
}

// Health is the liveness/readiness contract, replacing the teacher's
// api.Health (Heartbeat/LivenessCheck keyed by pluginID) with a
// parameterless pair, since there is exactly one server to monitor.
type Health interface {
	Heartbeat() error
	LivenessCheck() (bool, error)
}

// Audit is the request-event logging contract: the teacher's api.Audit
// (arbitrary event name + details map) with the request id as its own
// parameter. The event kind and the details stay untyped.
type Audit interface {
	LogRequestEvent(kind string, requestID uint64, details map[string]interface{}) error
}

// Security is the filesystem-permission contract, replacing the
// teacher's api.Security (signature validation, secure channel
// negotiation — meaningless without plugins or a network channel)
// with the one check this trust model calls for.
type Security interface {
	ValidatePermissions(path string) error
}

// Transport is the high-level request/response contract, replacing
// the teacher's api.Transport (raw Send/Receive bytes) with the
// actual submit/await shape client.Client offers.
type Transport interface {
	Submit(command string, deadline time.Time) (requestID uint64, err error)
	Await(requestID uint64, deadline time.Time) (ready bool, err error)
}
