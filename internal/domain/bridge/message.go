package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType tags a bridge message.
type MessageType string

// Content-originated message types.
const (
	TypeDOMReady         MessageType = "dom_ready"
	TypeLoadingText      MessageType = "loading_text"
	TypeWebLoadingHidden MessageType = "web_loading_hidden"

	// Registrations posted by the audio creation hook.
	TypeAudioContextCreated MessageType = "audio_context_created"
	TypeAudioState          MessageType = "audio_state"
)

var (
	// ErrMalformed is returned for messages that are not a JSON object with
	// the fields their type requires.
	ErrMalformed = errors.New("malformed bridge message")
	// ErrUnknownType is returned for well-formed messages of an unknown type.
	ErrUnknownType = errors.New("unknown bridge message type")
)

// Message is one decoded content-to-host message.
type Message struct {
	Type MessageType

	// Text is set for loading_text.
	Text string

	// Audio is set for audio_context_created and audio_state.
	Audio AudioPayload
}

// AudioPayload identifies an audio context inside the content and its last
// reported playback state ("running", "suspended", "interrupted", "closed").
type AudioPayload struct {
	ID    int64  `json:"id"`
	State string `json:"state,omitempty"`
}

type envelope struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textData struct {
	Text *string `json:"text"`
}

type audioData struct {
	ID    *int64 `json:"id"`
	State string `json:"state"`
}

// Decode parses a raw `{type, data}` message.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == nil || *env.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	msg := Message{Type: MessageType(*env.Type)}

	switch msg.Type {
	case TypeDOMReady, TypeWebLoadingHidden:
		return msg, nil

	case TypeLoadingText:
		var data textData
		if err := decodeData(env.Data, &data); err != nil {
			return Message{}, err
		}
		if data.Text == nil {
			return Message{}, fmt.Errorf("%w: loading_text without data.text", ErrMalformed)
		}
		msg.Text = *data.Text
		return msg, nil

	case TypeAudioContextCreated, TypeAudioState:
		var data audioData
		if err := decodeData(env.Data, &data); err != nil {
			return Message{}, err
		}
		if data.ID == nil {
			return Message{}, fmt.Errorf("%w: %s without data.id", ErrMalformed, msg.Type)
		}
		msg.Audio = AudioPayload{ID: *data.ID, State: data.State}
		return msg, nil

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
