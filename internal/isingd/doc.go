// Package isingd exposes temperature sweeps as asynchronous runs over HTTP,
// with a live websocket sample stream, an optional SQLite archive of finished
// traces and a gRPC health endpoint.
//
// Main Types:
//   - RunStore: in-memory run records and their traces
//   - RunExecutor: starts and cancels sweeps in the background
//   - Hub: fans live samples out to websocket subscribers
//   - Archive: SQLite persistence of completed traces
//   - HTTPServer: the REST surface
package isingd
