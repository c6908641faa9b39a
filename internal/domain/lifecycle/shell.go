package lifecycle

import (
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
)

// Shell is the platform side hosting the content surface. Calls are made
// from the owner context and must not block on the content.
type Shell interface {
	navigation.Loader
	navigation.Opener
	bridge.Evaluator
	bridge.ScriptInstaller
}

// ViewportScript makes the content extend under display cutouts by adding
// viewport-fit=cover to the viewport meta tag when it is missing.
const ViewportScript = `(function() {
	var m = document.querySelector('meta[name=viewport]');
	if (m && (m.getAttribute('content') || '').indexOf('viewport-fit') === -1) {
		m.setAttribute('content', (m.getAttribute('content') || '') + ', viewport-fit=cover');
	}
})();`
