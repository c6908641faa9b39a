package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
)

// contentRegistry is the page-side object the hook installs. It only holds
// the live references needed to call resume(); the host's HandleSet is the
// authoritative record.
const contentRegistry = "__hostAudio"

// HookScript returns the document-start script that wraps the page's
// AudioContext constructor. Every context it creates is given an ID and
// announced over the bridge, and every state change is reported.
func HookScript() string {
	post := func(kind string) string {
		return bridge.PostMessageCall(
			fmt.Sprintf("{type: %q, data: {id: id, state: String(ctx.state)}}", kind))
	}

	return `(function() {
	if (window.` + contentRegistry + `) { return; }
	var contexts = {};
	var nextID = 1;
	window.` + contentRegistry + ` = {
		resume: function(ids) {
			for (var i = 0; i < ids.length; i++) {
				var ctx = contexts[ids[i]];
				if (!ctx || (ctx.state !== 'suspended' && ctx.state !== 'interrupted')) { continue; }
				try {
					var p = ctx.resume();
					if (p && typeof p.catch === 'function') { p.catch(function() {}); }
				} catch (e) {}
			}
		}
	};
	var Orig = window.AudioContext || window.webkitAudioContext;
	if (!Orig) { return; }
	var Tracked = function AudioContext(opts) {
		var ctx = opts ? new Orig(opts) : new Orig();
		var id = nextID++;
		contexts[id] = ctx;
		try { ` + post(string(bridge.TypeAudioContextCreated)) + `; } catch (e) {}
		if (typeof ctx.addEventListener === 'function') {
			ctx.addEventListener('statechange', function() {
				try { ` + post(string(bridge.TypeAudioState)) + `; } catch (e) {}
			});
		}
		return ctx;
	};
	Tracked.prototype = Orig.prototype;
	window.AudioContext = Tracked;
	if (window.webkitAudioContext) { window.webkitAudioContext = Tracked; }
})();`
}

// ResumeScript returns a script asking the content to resume the given
// contexts. The content re-checks each context's live state, so a context
// that already recovered is left alone.
func ResumeScript(ids []HandleID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return fmt.Sprintf("window.%[1]s && window.%[1]s.resume([%[2]s]);",
		contentRegistry, strings.Join(parts, ","))
}
