// internal/protocol/messages.go
//
// Wire schema for the courtroom session channel. Inbound server pushes and
// outbound client commands are both JSON objects discriminated by a "type"
// field; this package narrows them into closed Go types at the boundary so
// the rest of the client never touches loose maps.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sound clip names the server cues.
const (
	SoundGavel     = "gavel"
	SoundVote      = "vote"
	SoundEvidence  = "evidence"
	SoundObjection = "objection"
)

// ErrUnknownMessageType marks an inbound message whose type discriminator
// is not part of the schema. Callers drop and log these.
var ErrUnknownMessageType = errors.New("unknown message type")

// Event is a decoded server-pushed message.
type Event interface{ isEvent() }

// UpdateEvent replaces the authoritative snapshot wholesale.
type UpdateEvent struct {
	Snapshot Snapshot
}

// SoundEvent is a one-shot audio cue.
type SoundEvent struct {
	Sound string
}

// ObjectionEvent announces that a participant yelled OBJECTION.
type ObjectionEvent struct {
	UserID   string
	Username string
}

// ErrorEvent carries a user-facing, non-fatal server error.
type ErrorEvent struct {
	Message string
}

func (UpdateEvent) isEvent()    {}
func (SoundEvent) isEvent()     {}
func (ObjectionEvent) isEvent() {}
func (ErrorEvent) isEvent()     {}

// envelope mirrors the loose JSON the server emits before DecodeEvent
// narrows it into one of the Event types.
type envelope struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Sound    string          `json:"sound,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	Username string          `json:"username,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// DecodeEvent validates and decodes one inbound message. Unknown types and
// malformed payloads return an error; the caller decides whether to drop or
// surface them, but a decode failure must never take down the channel.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch env.Type {
	case "update":
		if len(env.Data) == 0 {
			return nil, errors.New("update event missing data")
		}
		var snap Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		return UpdateEvent{Snapshot: snap}, nil

	case "sound":
		if env.Sound == "" {
			return nil, errors.New("sound event missing clip name")
		}
		return SoundEvent{Sound: env.Sound}, nil

	case "objection_event":
		return ObjectionEvent{UserID: env.UserID, Username: env.Username}, nil

	case "error":
		return ErrorEvent{Message: env.Message}, nil

	case "":
		return nil, errors.New("event missing type discriminator")

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}
