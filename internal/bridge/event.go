package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Event types pushed by the bridge.
const (
	EventTouch   = "touch"
	EventSonar   = "sonar"
	EventBattery = "battery"
	EventPeople  = "people"

	eventPong = "pong"
)

// Event is one message from the /ws/events feed.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// Time converts the bridge's unix-seconds timestamp.
func (e Event) Time() time.Time {
	sec, frac := math.Modf(e.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s event has no data", e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// BatteryEvent is the payload of a battery event. Level is nil when the
// robot could not read its charge.
type BatteryEvent struct {
	Level *int `json:"level"`
}

// PeopleEvent is the payload of a people event.
type PeopleEvent struct {
	Count int   `json:"count"`
	IDs   []int `json:"ids"`
}

// SonarEvent is the payload of a sonar obstacle event.
type SonarEvent struct {
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
	Obstacle bool    `json:"obstacle"`
}

// TouchEvent maps touch sensor names to their active state.
type TouchEvent map[string]bool

// Handler receives dispatched events. Returned errors are logged.
type Handler func(ctx context.Context, ev Event) error
