// Package presentation owns the native loading surface.
//
// The surface moves Pending -> ContentVisible -> Hidden and never back;
// Hidden removes it exactly once. Two strategies are available:
// BridgeHandoff waits for the content to announce that its own loading UI
// is gone, PaintFallback hides shortly after the first finished load.
// Both surface connectivity status while retries run.
package presentation
