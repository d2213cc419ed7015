// Package server serves mediactl's operational endpoints while a long-running
// command (upload, reorder) is active.
//
// # Router
//
// [NewRouter] builds a chi router with panic recovery, request logging through
// charm log, and request counting. Handlers implement [Handler], which pairs an
// [http.Handler] with the routes it serves.
//
// # Endpoints
//
//   - /healthz : [HealthHandler] runs the registered checks (database ping, API reachability)
//   - /metrics : Prometheus exposition of [metrics.Metrics]
//
// # Lifecycle
//
// [Server.Start] binds the listener synchronously so address errors surface to the
// caller, then serves in the background until [Server.Shutdown].
package server
