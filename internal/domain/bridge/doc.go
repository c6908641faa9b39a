// Package bridge implements the typed message channel between the host and
// the embedded content.
//
// The content posts JSON objects shaped {type, data} to
// window.webkit.messageHandlers.host. Recognized types are dom_ready,
// loading_text (data.text) and web_loading_hidden, plus the audio hook's
// audio_context_created and audio_state registrations (data.id, data.state).
// Anything else is dropped without error so a content-side bug can never take
// down the host.
//
// Host-to-content traffic is script evaluation with no acknowledgment.
package bridge
