package robot

import (
	"context"

	"github.com/soyeahso/peppercloud/internal/bridge"
)

// Speak says text aloud. Animated speech adds body language.
func (r *Robot) Speak(ctx context.Context, text string, animated bool) bool {
	return r.act("speak", func() error {
		return r.client.Speak(ctx, bridge.SpeakRequest{Text: text, Animated: animated})
	})
}

// SetVolume sets the speaker volume (0-100).
func (r *Robot) SetVolume(ctx context.Context, level int) bool {
	return r.act("set_volume", func() error { return r.client.SetVolume(ctx, level) })
}

// MoveForward walks distance meters at speed.
func (r *Robot) MoveForward(ctx context.Context, distance, speed float64) bool {
	return r.move("move_forward", func() error { return r.client.MoveForward(ctx, distance, speed) })
}

// Turn rotates in place by angle degrees, positive is left.
func (r *Robot) Turn(ctx context.Context, angle float64) bool {
	return r.move("turn", func() error { return r.client.MoveTurn(ctx, angle) })
}

// MoveHead points the head to yaw and pitch degrees.
func (r *Robot) MoveHead(ctx context.Context, yaw, pitch float64) bool {
	return r.move("move_head", func() error { return r.client.MoveHead(ctx, yaw, pitch, headSpeed) })
}

// MoveTo walks to a pose relative to the current one.
func (r *Robot) MoveTo(ctx context.Context, x, y, theta float64) bool {
	return r.move("move_to", func() error { return r.client.MoveTo(ctx, x, y, theta) })
}

// SetPosture moves to a predefined posture.
func (r *Robot) SetPosture(ctx context.Context, posture string) bool {
	return r.move("set_posture", func() error { return r.client.SetPosture(ctx, posture, postureSpeed) })
}

// PlayAnimation runs a named animation.
func (r *Robot) PlayAnimation(ctx context.Context, name string) bool {
	return r.move("play_animation", func() error { return r.client.PlayAnimation(ctx, name) })
}

// WakeUp stiffens the motors.
func (r *Robot) WakeUp(ctx context.Context) bool {
	return r.move("wake_up", func() error { return r.client.WakeUp(ctx) })
}

// Rest relaxes the motors into a safe posture.
func (r *Robot) Rest(ctx context.Context) bool {
	return r.move("rest", func() error { return r.client.Rest(ctx) })
}

// Stop halts locomotion. It does not wait for the motion lock.
func (r *Robot) Stop(ctx context.Context) bool {
	return r.act("stop", func() error { return r.client.Stop(ctx) })
}

// EmergencyStop halts all motion. It never waits for the motion lock.
func (r *Robot) EmergencyStop(ctx context.Context) bool {
	r.log.Warn().Msg("emergency stop requested")
	return r.act("emergency_stop", func() error { return r.client.EmergencyStop(ctx) })
}

// SetEyeColor sets the eye LEDs to a named color.
func (r *Robot) SetEyeColor(ctx context.Context, color string) bool {
	return r.act("set_eye_color", func() error {
		return r.client.SetEyeLEDs(ctx, bridge.LEDColor{Name: color, Duration: ledDuration})
	})
}

// SetChestColor sets the chest LED to a named color.
func (r *Robot) SetChestColor(ctx context.Context, color string) bool {
	return r.act("set_chest_color", func() error {
		return r.client.SetChestLEDs(ctx, bridge.LEDColor{Name: color, Duration: ledDuration})
	})
}

// SetAwareness toggles basic awareness.
func (r *Robot) SetAwareness(ctx context.Context, enabled bool) bool {
	return r.act("set_awareness", func() error { return r.client.SetAwareness(ctx, enabled) })
}

// SetAutonomousLife sets the autonomous life state.
func (r *Robot) SetAutonomousLife(ctx context.Context, state string) bool {
	return r.act("set_autonomous_life", func() error { return r.client.SetAutonomousLife(ctx, state) })
}

// TakePicture captures a VGA frame from camera 0 (top) or 1 (bottom).
func (r *Robot) TakePicture(ctx context.Context, camera int) *bridge.Picture {
	return read(r, "take_picture", func() (*bridge.Picture, error) {
		return r.client.Picture(ctx, camera, bridge.ResolutionVGA)
	})
}

// GetSensors reads every sensor.
func (r *Robot) GetSensors(ctx context.Context) *bridge.Sensors {
	return read(r, "get_sensors", func() (*bridge.Sensors, error) { return r.client.Sensors(ctx) })
}

// Status reads robot status directly from the bridge.
func (r *Robot) Status(ctx context.Context) *bridge.Status {
	return read(r, "status", func() (*bridge.Status, error) { return r.client.Status(ctx) })
}

// Health probes the bridge.
func (r *Robot) Health(ctx context.Context) *bridge.Health {
	return read(r, "health", func() (*bridge.Health, error) { return r.client.Health(ctx) })
}

// RecordAudio records from the microphones for duration seconds.
func (r *Robot) RecordAudio(ctx context.Context, duration float64) *bridge.AudioRecording {
	return read(r, "record_audio", func() (*bridge.AudioRecording, error) {
		return r.client.RecordAudio(ctx, duration)
	})
}
