package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
)

// Event types sent by a remote shell.
const (
	EventDidFinish              = "did_finish"
	EventDidFailProvisional     = "did_fail_provisional"
	EventDidFail                = "did_fail"
	EventDecidePolicy           = "decide_policy"
	EventCreateWindow           = "create_window"
	EventScriptMessage          = "script_message"
	EventAppActive              = "app_active"
	EventAudioInterruptionEnded = "audio_interruption_ended"
	EventReconnect              = "reconnect"
	EventPing                   = "ping"
)

// Command types sent to a remote shell.
const (
	CommandHello         = "hello"
	CommandLoad          = "load"
	CommandEvaluate      = "evaluate"
	CommandAddUserScript = "add_user_script"
	CommandOpenExternal  = "open_external"
	CommandSetStatus     = "set_status"
	CommandStopProgress  = "stop_progress"
	CommandRemoveLoading = "remove_loading"
	CommandPolicy        = "policy"
	CommandPong          = "pong"
	CommandError         = "error"
)

// ErrInvalidEvent is returned for events missing required fields.
var ErrInvalidEvent = errors.New("invalid shell event")

// Event is one message from the remote shell.
type Event struct {
	Type string `json:"type"`
	// ID correlates decide_policy with its policy answer.
	ID             string          `json:"id,omitempty"`
	URL            string          `json:"url,omitempty"`
	Kind           string          `json:"kind,omitempty"`
	HasTargetFrame bool            `json:"has_target_frame,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
}

// Command is one message to the remote shell.
type Command struct {
	Type          string `json:"type"`
	ID            string `json:"id,omitempty"`
	Session       string `json:"session,omitempty"`
	URL           string `json:"url,omitempty"`
	TimeoutMS     int64  `json:"timeout_ms,omitempty"`
	Attempt       int    `json:"attempt,omitempty"`
	Script        string `json:"script,omitempty"`
	InjectionTime string `json:"injection_time,omitempty"`
	MainFrameOnly bool   `json:"main_frame_only,omitempty"`
	Text          string `json:"text,omitempty"`
	Animated      bool   `json:"animated,omitempty"`
	Decision      string `json:"decision,omitempty"`
	Message       string `json:"message,omitempty"`
}

// DecodeEvent parses and validates one event.
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := sonic.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch ev.Type {
	case "":
		return Event{}, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	case EventDecidePolicy:
		if ev.ID == "" {
			return Event{}, fmt.Errorf("%w: decide_policy without id", ErrInvalidEvent)
		}
	case EventCreateWindow:
		if ev.URL == "" {
			return Event{}, fmt.Errorf("%w: create_window without url", ErrInvalidEvent)
		}
	case EventScriptMessage:
		if len(ev.Message) == 0 {
			return Event{}, fmt.Errorf("%w: script_message without message", ErrInvalidEvent)
		}
	}
	return ev, nil
}

// ParsedURL parses the event URL. An empty URL parses to nil.
func (e Event) ParsedURL() (*url.URL, error) {
	if e.URL == "" {
		return nil, nil
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return u, nil
}
