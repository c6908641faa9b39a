// Package navigation owns loading the embedded content and deciding where
// navigations go.
//
// The retry machine:
//
//	Idle -> Loading -> Loaded
//	                -> ProvisionalFailed -> (after n × unit) Loading
//	                -> NonProvisionalFailed
//
// Provisional failures (nothing received: offline, DNS, timeout) spend one
// attempt each from a fixed budget; once the budget is spent the next
// failure marks the controller exhausted and only Reconnect, or a load that
// succeeds anyway, leaves that state. Non-provisional failures are reported
// and left to the content to recover.
//
// The allow-list keeps the content's own domain and a few auxiliary
// advertising domains inside the primary surface; everything else is handed
// to an external browser.
package navigation
