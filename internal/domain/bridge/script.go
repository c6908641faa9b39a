package bridge

import "fmt"

// HandlerName is the script message handler the host registers with the
// content surface: window.webkit.messageHandlers.host.
const HandlerName = "host"

// PostMessageCall returns a guarded JS statement that posts arg (a JS
// expression) to the host. It is a no-op in pages running outside the host.
func PostMessageCall(arg string) string {
	return fmt.Sprintf(
		"(window.webkit && window.webkit.messageHandlers && window.webkit.messageHandlers.%[1]s && window.webkit.messageHandlers.%[1]s.postMessage(%[2]s))",
		HandlerName, arg)
}

// InjectionTime says when a user script runs relative to the page's own
// scripts.
type InjectionTime int

const (
	// AtDocumentStart runs before any page script.
	AtDocumentStart InjectionTime = iota
	// AtDocumentEnd runs after the document is parsed, before subresources
	// finish.
	AtDocumentEnd
)

func (t InjectionTime) String() string {
	switch t {
	case AtDocumentStart:
		return "document_start"
	case AtDocumentEnd:
		return "document_end"
	default:
		return "unknown"
	}
}

// UserScript is a script the content surface injects into every document it
// loads.
type UserScript struct {
	Source        string
	InjectionTime InjectionTime
	MainFrameOnly bool
}

// ScriptInstaller registers user scripts with the content surface. Scripts
// apply to documents loaded after registration.
type ScriptInstaller interface {
	AddUserScript(script UserScript)
}
