// Package main is the entry point for the content host.
//
// The host runs in one of two modes:
//
//	headless  drives the content with the built-in fetch and script
//	          runtime shell, useful for smoke-testing a deployment
//	gateway   serves remote shells over WebSocket, one controller per
//	          connection
//
// Configuration comes from environment variables, or from a .toml/.yaml
// profile passed with -config. Flags override both.
//
// Usage:
//
//	./host -mode headless -url https://example.com/play
//	./host -mode gateway -port 8000 -config host.toml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
//   - SIGCONT: Application became active (headless)
//   - SIGUSR1: Audio interruption ended (headless)
//   - SIGHUP: Reconnect (headless)
package main
