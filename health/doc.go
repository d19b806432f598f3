// Package health tracks the health of the bridge's components and serves it
// on the /healthz endpoint.
//
// # Health States
//
//   - healthy: operating normally
//   - degraded: operating, but with a recent failure (for example a NATS
//     reconnect or a failing poll)
//   - unhealthy: not operating
//
// # Usage
//
//	monitor := health.NewMonitor()
//	monitor.Register("consumer", consumer)  // polled on every read
//	monitor.Register("nats", health.CheckerFunc(func() health.Status { ... }))
//	monitor.UpdateHealthy("catalog", "42 types loaded")
//
//	server.Handle("/healthz", monitor.Handler("atlasbridge"))
//
// The aggregate is unhealthy if any component is unhealthy, degraded if any
// is degraded, and healthy otherwise. The handler answers 503 only for an
// unhealthy aggregate, so a degraded bridge keeps receiving traffic.
//
// Messages built from errors go through Sanitize, which strips URLs, paths,
// IP addresses and credentials.
package health
