package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/google/uuid"
)

type EventType string

const (
	EventStateUpdated EventType = "live_state.updated"
	EventStateDeleted EventType = "live_state.deleted"
)

// Envelope is the wire format of every message sent to subscribers.
type Envelope struct {
	Type      EventType       `json:"type"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Event is a decoded envelope. State is set for EventStateUpdated only.
type Event struct {
	Type      EventType
	LeagueID  uuid.UUID
	Timestamp time.Time
	State     *livegame.State
}

func MarshalEvent(evt Event) ([]byte, error) {
	env := Envelope{
		Type:      evt.Type,
		LeagueID:  evt.LeagueID,
		Timestamp: evt.Timestamp,
	}
	if evt.State != nil {
		payload, err := json.Marshal(evt.State)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}

// UnmarshalEvent decodes an envelope. Update payloads go through the same
// sanitizer as documents read over HTTP.
func UnmarshalEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evt := Event{
		Type:      env.Type,
		LeagueID:  env.LeagueID,
		Timestamp: env.Timestamp,
	}
	switch evt.Type {
	case EventStateUpdated:
		st, err := livegame.Decode(env.Payload, env.Timestamp)
		if err != nil {
			return evt, fmt.Errorf("unmarshal %s: %w", evt.Type, err)
		}
		evt.State = &st
	case EventStateDeleted:
	default:
		return evt, fmt.Errorf("unknown event type: %s", env.Type)
	}
	return evt, nil
}
