package agent

import (
	"context"
	"sync"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/robot"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeRobot records every facade call. fail makes actions return false and
// reads return nil; panicOn panics inside the named call.
type fakeRobot struct {
	mu      sync.Mutex
	calls   []string
	args    [][]any
	fail    bool
	panicOn string
	picture *bridge.Picture
	state   robot.State
}

func newFakeRobot() *fakeRobot {
	return &fakeRobot{
		picture: &bridge.Picture{Image: repeat("A", 5000), Width: 640, Height: 480, Format: "jpeg"},
		state:   robot.State{BatteryLevel: 80, BatteryKnown: true, Posture: "Standing", AutonomousLife: "disabled", Connected: true, RobotName: "Pepper"},
	}
}

func repeat(s string, n int) string {
	b := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		b = append(b, s...)
	}
	return string(b)
}

func (f *fakeRobot) record(name string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	f.mu.Unlock()
	if f.panicOn == name {
		panic("bridge client used before Connect")
	}
}

func (f *fakeRobot) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRobot) lastArgs() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.args) == 0 {
		return nil
	}
	return f.args[len(f.args)-1]
}

func (f *fakeRobot) Speak(_ context.Context, text string, animated bool) bool {
	f.record("speak", text, animated)
	return !f.fail
}

func (f *fakeRobot) MoveForward(_ context.Context, distance, speed float64) bool {
	f.record("move_forward", distance, speed)
	return !f.fail
}

func (f *fakeRobot) Turn(_ context.Context, angle float64) bool {
	f.record("turn", angle)
	return !f.fail
}

func (f *fakeRobot) MoveHead(_ context.Context, yaw, pitch float64) bool {
	f.record("move_head", yaw, pitch)
	return !f.fail
}

func (f *fakeRobot) SetPosture(_ context.Context, posture string) bool {
	f.record("set_posture", posture)
	return !f.fail
}

func (f *fakeRobot) PlayAnimation(_ context.Context, name string) bool {
	f.record("play_animation", name)
	return !f.fail
}

func (f *fakeRobot) SetEyeColor(_ context.Context, color string) bool {
	f.record("set_eye_color", color)
	return !f.fail
}

func (f *fakeRobot) TakePicture(_ context.Context, camera int) *bridge.Picture {
	f.record("take_picture", camera)
	if f.fail {
		return nil
	}
	return f.picture
}

func (f *fakeRobot) GetSensors(context.Context) *bridge.Sensors {
	f.record("get_sensors")
	if f.fail {
		return nil
	}
	battery, people := 80.0, 2
	left, right := 1.2, 0.4
	return &bridge.Sensors{
		Battery:     &battery,
		Touch:       bridge.Touch{HeadFront: true},
		Sonar:       bridge.Sonar{Left: &left, Right: &right},
		PeopleCount: &people,
	}
}

func (f *fakeRobot) EmergencyStop(context.Context) bool {
	f.record("emergency_stop")
	return !f.fail
}

func (f *fakeRobot) State() robot.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
