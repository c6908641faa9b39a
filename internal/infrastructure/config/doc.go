// Package config provides 12-factor configuration for the content host.
//
// Configuration is loaded from environment variables with defaults matching
// the shipped app: entry point https://bouncengi.net, 15s per-attempt timeout,
// three retries with a 1s linear backoff unit, bridge-driven loading handoff.
// A .toml or .yaml profile can be loaded instead with LoadFile.
//
// Configuration Sections:
//   - Content: entry URL, per-attempt timeout, auxiliary allow-list, compat script
//   - Retry: provisional failure budget and backoff unit
//   - Presentation: loading handoff mode, grace delays, optional safety timeout
//   - Server: gateway HTTP listener
//   - Logging: level and output format
//   - RateLimit: inbound shell message limits
//
// Environment Variables:
//   - CONTENT_URL, CONTENT_TIMEOUT, CONTENT_ALLOWED_DOMAINS, CONTENT_COMPAT_SCRIPT
//   - RETRY_MAX_ATTEMPTS, RETRY_BACKOFF_UNIT
//   - LOADING_MODE, LOADING_DOM_READY_GRACE, LOADING_FALLBACK_HIDE_DELAY,
//     LOADING_SAFETY_TIMEOUT, LOADING_ANIMATED
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_MPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
