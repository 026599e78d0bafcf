package robot

import (
	"fmt"
	"time"
)

// State is an immutable snapshot of the robot as last observed. A new
// value is stored on every refresh.
type State struct {
	BatteryLevel   int // percent, valid when BatteryKnown
	BatteryKnown   bool
	Posture        string
	Connected      bool
	AutonomousLife string
	RobotName      string
	UpdatedAt      time.Time
}

func initialState() *State {
	return &State{
		Posture:        "unknown",
		AutonomousLife: "unknown",
		RobotName:      "Pepper",
	}
}

// Battery formats the battery level for display.
func (s State) Battery() string {
	if !s.BatteryKnown {
		return "unknown"
	}
	return fmt.Sprintf("%d%%", s.BatteryLevel)
}

// LowBattery reports whether a known battery level is at or below
// threshold percent.
func (s State) LowBattery(threshold int) bool {
	return s.BatteryKnown && s.BatteryLevel <= threshold
}
