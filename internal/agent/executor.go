package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/metrics"
	"github.com/soyeahso/peppercloud/internal/robot"
)

// Safety ranges for numeric tool parameters. Values outside are clamped.
const (
	minDistance, maxDistance = -2.0, 2.0
	minSpeed, maxSpeed       = 0.1, 0.8
	minAngle, maxAngle       = -180.0, 180.0
	minYaw, maxYaw           = -119.0, 119.0
	minPitch, maxPitch       = -40.0, 36.0

	defaultDistance = 0.5
	defaultSpeed    = 0.3

	photoPreviewLen = 100
	photoNote       = "Photo captured successfully. Full image available to the user."
)

// Robot is the facade surface the executor dispatches to.
type Robot interface {
	Speak(ctx context.Context, text string, animated bool) bool
	MoveForward(ctx context.Context, distance, speed float64) bool
	Turn(ctx context.Context, angle float64) bool
	MoveHead(ctx context.Context, yaw, pitch float64) bool
	SetPosture(ctx context.Context, posture string) bool
	PlayAnimation(ctx context.Context, name string) bool
	SetEyeColor(ctx context.Context, color string) bool
	TakePicture(ctx context.Context, camera int) *bridge.Picture
	GetSensors(ctx context.Context) *bridge.Sensors
	EmergencyStop(ctx context.Context) bool
	State() robot.State
}

// ValidationError rejects a parameter that has no safe substitute.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ToolResult is the structured outcome of one tool call. It serializes to
// a flat JSON object: success, then error, then the payload fields.
type ToolResult struct {
	Success bool
	Error   string
	Payload map[string]any
}

// MarshalJSON writes the flat form with a stable key order.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"success":`)
	buf.WriteString(strconv.FormatBool(r.Success))
	if r.Error != "" {
		buf.WriteString(`,"error":`)
		b, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}

	keys := make([]string, 0, len(r.Payload))
	for k := range r.Payload {
		if k == "success" || k == "error" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(r.Payload[k])
		if err != nil {
			return nil, fmt.Errorf("tool result field %s: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSON returns the tool-result content string fed back to the model.
func (r ToolResult) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(ToolResult{Error: err.Error()})
	}
	return string(b)
}

// Outcome is what Execute hands back to the orchestrator. Photo carries the
// untruncated picture when take_photo succeeded.
type Outcome struct {
	Result ToolResult
	Photo  *bridge.Picture
}

func ok(payload map[string]any) ToolResult {
	return ToolResult{Success: true, Payload: payload}
}

func fail(msg string) ToolResult {
	return ToolResult{Error: msg}
}

// Executor validates tool input and dispatches it to the robot. It never
// panics and never returns an error; failures become unsuccessful results.
type Executor struct {
	robot Robot
	log   *logging.Logger
}

// NewExecutor creates an executor over a robot facade.
func NewExecutor(r Robot, log *logging.Logger) *Executor {
	return &Executor{robot: r, log: log.Sub("agent.tools")}
}

// Robot returns the facade the executor drives.
func (e *Executor) Robot() Robot {
	return e.robot
}

// Execute runs one tool call.
func (e *Executor) Execute(ctx context.Context, name string, input map[string]any) (out Outcome) {
	start := time.Now()
	e.log.Info().Str("tool", name).Interface("input", input).Msg("executing tool")

	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().Str("tool", name).Interface("panic", rec).Msg("tool execution panicked")
			out = Outcome{Result: fail(fmt.Sprint(rec))}
		}

		label := name
		if !knownTool(name) {
			label = "unknown"
		}
		metrics.RecordToolExecution(label, out.Result.Success)

		ev := e.log.Debug()
		if !out.Result.Success {
			ev = e.log.Warn().Str("error", out.Result.Error)
		}
		ev.Str("tool", name).Dur("duration", time.Since(start)).Msg("tool executed")
	}()

	if input == nil {
		input = map[string]any{}
	}
	return e.dispatch(ctx, name, input)
}

func (e *Executor) dispatch(ctx context.Context, name string, in map[string]any) Outcome {
	switch name {
	case ToolSpeak:
		text, _ := in["text"].(string)
		if text == "" {
			return Outcome{Result: fail("text is required")}
		}
		animated, _ := in["animated"].(bool)
		if !e.robot.Speak(ctx, text, animated) {
			return Outcome{Result: fail("Robot could not speak")}
		}
		return Outcome{Result: ok(map[string]any{"spoken": text})}

	case ToolMoveForward:
		distance := clampParam(in, "distance", defaultDistance, minDistance, maxDistance)
		speed := clampParam(in, "speed", defaultSpeed, minSpeed, maxSpeed)
		payload := map[string]any{"distance": distance, "speed": speed}
		if !e.robot.MoveForward(ctx, distance, speed) {
			return Outcome{Result: ToolResult{Error: "Robot could not move", Payload: payload}}
		}
		return Outcome{Result: ok(payload)}

	case ToolTurn:
		angle := clampParam(in, "angle", 0, minAngle, maxAngle)
		payload := map[string]any{"angle": angle}
		if !e.robot.Turn(ctx, angle) {
			return Outcome{Result: ToolResult{Error: "Robot could not turn", Payload: payload}}
		}
		return Outcome{Result: ok(payload)}

	case ToolMoveHead:
		yaw := clampParam(in, "yaw", 0, minYaw, maxYaw)
		pitch := clampParam(in, "pitch", 0, minPitch, maxPitch)
		payload := map[string]any{"yaw": yaw, "pitch": pitch}
		if !e.robot.MoveHead(ctx, yaw, pitch) {
			return Outcome{Result: ToolResult{Error: "Robot could not move its head", Payload: payload}}
		}
		return Outcome{Result: ok(payload)}

	case ToolSetPosture:
		posture := stringParam(in, "posture", "Stand")
		if err := oneOf("posture", posture, Postures); err != nil {
			return Outcome{Result: fail(err.Error())}
		}
		if !e.robot.SetPosture(ctx, posture) {
			return Outcome{Result: fail("Robot could not reach posture " + posture)}
		}
		return Outcome{Result: ok(map[string]any{"posture": posture})}

	case ToolPlayAnimation:
		anim, _ := in["name"].(string)
		if anim == "" {
			return Outcome{Result: fail("name is required")}
		}
		if !e.robot.PlayAnimation(ctx, anim) {
			return Outcome{Result: fail("Robot could not play animation " + anim)}
		}
		return Outcome{Result: ok(map[string]any{"animation": anim})}

	case ToolSetEyeColor:
		color := stringParam(in, "color", "white")
		if err := oneOf("color", color, EyeColors); err != nil {
			return Outcome{Result: fail(err.Error())}
		}
		if !e.robot.SetEyeColor(ctx, color) {
			return Outcome{Result: fail("Robot could not set eye color")}
		}
		return Outcome{Result: ok(map[string]any{"color": color})}

	case ToolTakePhoto:
		camera, err := cameraParam(in)
		if err != nil {
			return Outcome{Result: fail(err.Error())}
		}
		pic := e.robot.TakePicture(ctx, camera)
		if pic == nil || pic.Image == "" {
			return Outcome{Result: fail("Camera returned no image")}
		}
		return Outcome{
			Result: ok(map[string]any{
				"camera":       camera,
				"width":        pic.Width,
				"height":       pic.Height,
				"image_base64": truncate(pic.Image, photoPreviewLen),
				"note":         photoNote,
			}),
			Photo: pic,
		}

	case ToolGetSensors:
		s := e.robot.GetSensors(ctx)
		if s == nil {
			return Outcome{Result: fail("Sensors unavailable")}
		}
		return Outcome{Result: ok(sensorPayload(s))}

	case ToolEmergencyStop:
		if !e.robot.EmergencyStop(ctx) {
			return Outcome{Result: fail("Emergency stop could not be delivered to the robot")}
		}
		return Outcome{Result: ok(map[string]any{"message": "Emergency stop activated"})}

	default:
		return Outcome{Result: fail("Unknown tool: " + name)}
	}
}

func knownTool(name string) bool {
	for _, t := range Tools() {
		if t.Name == name {
			return true
		}
	}
	return false
}

// clampParam reads a numeric parameter, substituting def when absent and 0
// when the value is not a number, then clamps it to [lo, hi].
func clampParam(in map[string]any, key string, def, lo, hi float64) float64 {
	v, present := in[key]
	if !present || v == nil {
		return clamp(def, lo, hi)
	}
	return clamp(toFloat(v), lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func stringParam(in map[string]any, key, def string) string {
	v, present := in[key]
	if !present || v == nil {
		return def
	}
	s, _ := v.(string)
	return s
}

func oneOf(param, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Param:   param,
		Message: fmt.Sprintf("Invalid %s %q. Must be one of: %s", param, value, strings.Join(allowed, ", ")),
	}
}

func cameraParam(in map[string]any) (int, error) {
	v, present := in["camera"]
	if !present || v == nil {
		return bridge.CameraTop, nil
	}
	if isNumber(v) {
		switch toFloat(v) {
		case bridge.CameraTop:
			return bridge.CameraTop, nil
		case bridge.CameraBottom:
			return bridge.CameraBottom, nil
		}
	}
	return 0, &ValidationError{Param: "camera", Message: fmt.Sprintf("Invalid camera %v. Must be 0 (top) or 1 (bottom)", v)}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sensorPayload(s *bridge.Sensors) map[string]any {
	return map[string]any{
		"battery":      s.Battery,
		"touch":        s.Touch,
		"sonar":        s.Sonar,
		"people_count": s.PeopleCount,
	}
}
