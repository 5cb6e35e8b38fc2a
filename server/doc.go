// Package server exposes a catalog of flows over HTTP.
//
// The [Server] wraps a Gin engine in the standard middleware stack
// (server/middleware) and serves it over HTTP/1.1 and cleartext HTTP/2.
// [API] registers the run endpoints on that engine:
//
//	GET  /health             liveness and build version
//	GET  /version            build information
//	GET  /flows              catalog listing with node topology
//	GET  /flows/:name        a single flow
//	POST /flows/:name/runs   run a flow synchronously
//	GET  /runs/:id           a finished run and its step trace
//
// Runs are kept in a [RunStore]; [MemoryStore] holds the most recent ones.
// Errors are rendered from [errors.AppError] values.
package server
