/*
Package monitoring provides Prometheus metrics for the content host.

# Overview

The lifecycle core reports load attempts and outcomes, scheduled retries,
retry budget exhaustion, bridge traffic, loading phase transitions, audio
resume passes and navigation decisions. The gateway adds HTTP and WebSocket
metrics.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", monitoring.Handler(metrics))

Every Record/Set/Inc method accepts a nil receiver, so components can run
without metrics in tests.
*/
package monitoring
