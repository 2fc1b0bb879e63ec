// Package app wires the data sweeper together and manages its lifecycle.
//
// New builds, in order: OpenTelemetry providers and the sweeper metrics, the
// websocket hub, the in-memory session store, the sweeper and health
// services, and finally the chi router and http.Server. NewApplication does
// the same after loading configuration and initializing the logger.
//
// # Routing
//
// /ws sits outside the main middleware group so the upgrade sees an
// unwrapped ResponseWriter. Everything else runs through
//
//	RequestID → RealIP → OTel → Logger → Recoverer → SecureHeaders → CORS → RateLimit → Timeout
//
// with CORS and rate limiting applied only when enabled in configuration.
// /metrics is served outside the group when Prometheus export is on.
//
// # Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains the HTTP server, stops the
// hub and the store's sweeper, and flushes telemetry.
package app
