// Package headless runs the host controller without a platform web view.
//
// The Shell fetches the content entry point over HTTP, parses it, and gives
// every document a fresh goja execution context with the pieces the host
// relies on: the webkit message handler bridge, an AudioContext stand-in,
// timers, window.open and a DOM subset over the parsed tree. User scripts
// run at document start and end around the page's inline scripts, then the
// load is reported finished.
//
// Transport failures are provisional; a response that is not an HTML
// document is a non-provisional failure. Splash is a logging loading
// surface for the same setup.
package headless
