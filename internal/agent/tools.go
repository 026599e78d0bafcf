package agent

import "github.com/soyeahso/peppercloud/internal/llm"

// Tool names. The set is closed; anything else is answered with an
// unknown-tool result.
const (
	ToolSpeak         = "speak"
	ToolMoveForward   = "move_forward"
	ToolTurn          = "turn"
	ToolMoveHead      = "move_head"
	ToolSetPosture    = "set_posture"
	ToolPlayAnimation = "play_animation"
	ToolSetEyeColor   = "set_eye_color"
	ToolTakePhoto     = "take_photo"
	ToolGetSensors    = "get_sensors"
	ToolEmergencyStop = "emergency_stop"
)

// Postures accepted by set_posture.
var Postures = []string{"Stand", "StandInit", "StandZero", "Crouch"}

// EyeColors accepted by set_eye_color.
var EyeColors = []string{"red", "green", "blue", "yellow", "purple", "cyan", "white", "off"}

// Tools returns the schemas advertised to the model on every call.
func Tools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolSpeak,
			Description: "Make Pepper say something out loud. Use this whenever you want the robot to verbally communicate.",
			InputSchema: object(map[string]any{
				"text":     prop("string", "The text for Pepper to speak aloud."),
				"animated": withDefault(prop("boolean", "Whether to use animated speech with gestures. Default false."), false),
			}, "text"),
		},
		{
			Name:        ToolMoveForward,
			Description: "Move Pepper forward or backward by a distance in meters. Positive = forward, negative = backward. Max 2m.",
			InputSchema: object(map[string]any{
				"distance": prop("number", "Distance in meters (-2.0 to 2.0)."),
				"speed":    withDefault(prop("number", "Speed factor (0.1 to 0.8). Default 0.3."), 0.3),
			}, "distance"),
		},
		{
			Name:        ToolTurn,
			Description: "Turn Pepper left or right by an angle in degrees. Positive = counter-clockwise (left), negative = clockwise (right).",
			InputSchema: object(map[string]any{
				"angle": prop("number", "Angle in degrees (-180 to 180)."),
			}, "angle"),
		},
		{
			Name:        ToolMoveHead,
			Description: "Move Pepper's head to look in a direction.",
			InputSchema: object(map[string]any{
				"yaw":   withDefault(prop("number", "Horizontal angle in degrees. Positive = left, negative = right. Range: -119 to 119."), 0),
				"pitch": withDefault(prop("number", "Vertical angle in degrees. Positive = down, negative = up. Range: -40 to 36."), 0),
			}),
		},
		{
			Name:        ToolSetPosture,
			Description: "Set Pepper's body posture.",
			InputSchema: object(map[string]any{
				"posture": enum(prop("string", "Target posture."), Postures),
			}, "posture"),
		},
		{
			Name:        ToolPlayAnimation,
			Description: "Play a built-in gesture animation on Pepper.",
			InputSchema: object(map[string]any{
				"name": prop("string", "Animation path, e.g. 'animations/Stand/Gestures/Hey_1' for waving, "+
					"'animations/Stand/Gestures/Enthusiastic_4' for nodding."),
			}, "name"),
		},
		{
			Name:        ToolSetEyeColor,
			Description: "Set the color of Pepper's eye LEDs.",
			InputSchema: object(map[string]any{
				"color": enum(prop("string", "Color name."), EyeColors),
			}, "color"),
		},
		{
			Name:        ToolTakePhoto,
			Description: "Take a photo with Pepper's camera and return it. Use this to see what Pepper sees.",
			InputSchema: object(map[string]any{
				"camera": withDefault(prop("integer", "0 = top camera, 1 = bottom camera. Default 0."), 0),
			}),
		},
		{
			Name:        ToolGetSensors,
			Description: "Read Pepper's current sensor data: battery level, touch sensors, sonar distances, and people count.",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        ToolEmergencyStop,
			Description: "Immediately stop all movement and disable motors. Use only in emergencies.",
			InputSchema: object(map[string]any{}),
		},
	}
}

// IsLocomotion reports whether a tool moves the robot's base.
func IsLocomotion(name string) bool {
	return name == ToolMoveForward || name == ToolTurn
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func withDefault(p map[string]any, v any) map[string]any {
	p["default"] = v
	return p
}

func enum(p map[string]any, values []string) map[string]any {
	p["enum"] = values
	return p
}
