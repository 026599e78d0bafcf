package bridge

// Health is the /health payload.
type Health struct {
	Bridge    string  `json:"bridge"`
	Version   string  `json:"version"`
	NAOqi     string  `json:"naoqi"`
	Timestamp float64 `json:"timestamp"`
}

// Status is the /status payload. Battery is nil when the robot could not
// report it.
type Status struct {
	Battery        *int   `json:"battery"`
	Posture        string `json:"posture"`
	RobotName      string `json:"robot_name"`
	NAOqiVersion   string `json:"naoqi_version"`
	AutonomousLife string `json:"autonomous_life"`
}

// Touch reports which touch sensors are active.
type Touch struct {
	HeadFront  bool `json:"head_front"`
	HeadMiddle bool `json:"head_middle"`
	HeadRear   bool `json:"head_rear"`
	HandLeft   bool `json:"hand_left"`
	HandRight  bool `json:"hand_right"`
}

// Sonar holds the front sonar distances in meters.
type Sonar struct {
	Left  *float64 `json:"left"`
	Right *float64 `json:"right"`
}

// Sensors is the /sensors payload.
type Sensors struct {
	Battery     *float64 `json:"battery"`
	Touch       Touch    `json:"touch"`
	Sonar       Sonar    `json:"sonar"`
	PeopleCount *int     `json:"people_count"`
}

// Picture is a camera frame. Image is base64-encoded.
type Picture struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// AudioRecording is the /audio/record payload. Audio is base64-encoded.
type AudioRecording struct {
	Audio    string  `json:"audio"`
	Format   string  `json:"format"`
	Duration float64 `json:"duration"`
}

// SpeakRequest is the /speak body.
type SpeakRequest struct {
	Text     string `json:"text"`
	Animated bool   `json:"animated"`
	Language string `json:"language,omitempty"`
}

// LEDColor selects a named color or an RGB triple (0-1 each). A non-empty
// Name takes precedence on the bridge.
type LEDColor struct {
	Name     string  `json:"color,omitempty"`
	R        float64 `json:"r"`
	G        float64 `json:"g"`
	B        float64 `json:"b"`
	Duration float64 `json:"duration"`
}

// Camera ids.
const (
	CameraTop    = 0
	CameraBottom = 1
)

// ResolutionVGA is the default picture resolution index.
const ResolutionVGA = 2
