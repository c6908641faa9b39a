// Package audio keeps Web Audio contexts created by the embedded content
// playing across session interruptions (calls, other apps taking the output,
// backgrounding).
//
// A document-start hook wraps AudioContext so every context is announced to
// the host over the bridge. The host owns the HandleSet; the page keeps only
// the references it needs to call resume(). On application-active and
// interruption-ended the Tracker sends one resume instruction naming every
// candidate context. All of this is best-effort and silent.
package audio
