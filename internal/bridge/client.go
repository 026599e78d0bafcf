// Package bridge is the cloud side of the robot bridge: an HTTP client for
// the actuator and sensor endpoints, and a reconnecting WebSocket consumer
// for the live event feed.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/metrics"
	"github.com/soyeahso/peppercloud/internal/version"
)

const (
	defaultTimeout = 15 * time.Second
	connectTimeout = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the bridge over HTTP. Connect must be called before any
// operation.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    atomic.Pointer[http.Client]
	log     *logging.Logger
}

// NewClient creates an unconnected bridge client.
func NewClient(opts Options, log *logging.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		timeout: timeout,
		log:     log.Sub("bridge"),
	}
}

// Connect creates the HTTP transport. Calling it again is a no-op.
func (c *Client) Connect() {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if c.http.CompareAndSwap(nil, &http.Client{Transport: transport, Timeout: c.timeout}) {
		c.log.Debug().Str("url", c.baseURL).Dur("timeout", c.timeout).Msg("bridge client connected")
	}
}

// Close releases the transport. Safe to call more than once.
func (c *Client) Close() {
	if hc := c.http.Swap(nil); hc != nil {
		hc.CloseIdleConnections()
		c.log.Debug().Msg("bridge client closed")
	}
}

// Connected reports whether Connect was called and Close was not.
func (c *Client) Connected() bool {
	return c.http.Load() != nil
}

// BaseURL returns the bridge base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the common {ok, error} wrapper of every bridge reply.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// do performs one exchange. out, when non-nil, receives the payload fields
// of the envelope.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	hc := c.http.Load()
	if hc == nil {
		panic("bridge: client used before Connect")
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		metrics.RecordBridgeRequest(endpoint, "transport", time.Since(start))
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.RecordBridgeRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{Endpoint: endpoint}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &RequestError{Endpoint: endpoint, Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, body, nil)
}

// Health probes the bridge.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Status returns battery, posture and autonomy state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.get(ctx, "/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Sensors returns the current sensor readings.
func (c *Client) Sensors(ctx context.Context) (*Sensors, error) {
	var s Sensors
	if err := c.get(ctx, "/sensors", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Picture captures one camera frame.
func (c *Client) Picture(ctx context.Context, camera, resolution int) (*Picture, error) {
	q := url.Values{}
	q.Set("camera", strconv.Itoa(camera))
	q.Set("resolution", strconv.Itoa(resolution))
	var p Picture
	if err := c.get(ctx, "/picture", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Speak says text aloud.
func (c *Client) Speak(ctx context.Context, req SpeakRequest) error {
	return c.post(ctx, "/speak", req)
}

// SetVolume sets the master volume (0-100).
func (c *Client) SetVolume(ctx context.Context, level int) error {
	return c.post(ctx, "/volume", map[string]any{"level": level})
}

// MoveForward walks distance meters (negative is backward) at speed.
func (c *Client) MoveForward(ctx context.Context, distance, speed float64) error {
	return c.post(ctx, "/move/forward", map[string]any{"distance": distance, "speed": speed})
}

// MoveTurn rotates in place by angle degrees (positive is left).
func (c *Client) MoveTurn(ctx context.Context, angle float64) error {
	return c.post(ctx, "/move/turn", map[string]any{"angle": angle})
}

// MoveHead points the head to yaw and pitch degrees.
func (c *Client) MoveHead(ctx context.Context, yaw, pitch, speed float64) error {
	return c.post(ctx, "/move/head", map[string]any{"yaw": yaw, "pitch": pitch, "speed": speed})
}

// MoveTo walks to a relative pose.
func (c *Client) MoveTo(ctx context.Context, x, y, theta float64) error {
	return c.post(ctx, "/move/to", map[string]any{"x": x, "y": y, "theta": theta})
}

// Stop halts locomotion.
func (c *Client) Stop(ctx context.Context) error {
	return c.post(ctx, "/stop", nil)
}

// EmergencyStop halts all motion immediately.
func (c *Client) EmergencyStop(ctx context.Context) error {
	return c.post(ctx, "/emergency_stop", nil)
}

// SetPosture moves to a predefined posture.
func (c *Client) SetPosture(ctx context.Context, posture string, speed float64) error {
	return c.post(ctx, "/posture", map[string]any{"posture": posture, "speed": speed})
}

// WakeUp stiffens the motors.
func (c *Client) WakeUp(ctx context.Context) error {
	return c.post(ctx, "/wake_up", nil)
}

// Rest relaxes the motors.
func (c *Client) Rest(ctx context.Context) error {
	return c.post(ctx, "/rest", nil)
}

// SetEyeLEDs colors the eye LEDs.
func (c *Client) SetEyeLEDs(ctx context.Context, color LEDColor) error {
	return c.post(ctx, "/leds/eyes", color)
}

// SetChestLEDs colors the chest LEDs.
func (c *Client) SetChestLEDs(ctx context.Context, color LEDColor) error {
	return c.post(ctx, "/leds/chest", color)
}

// PlayAnimation runs a named animation.
func (c *Client) PlayAnimation(ctx context.Context, name string) error {
	return c.post(ctx, "/animation", map[string]any{"name": name})
}

// SetAwareness toggles basic awareness.
func (c *Client) SetAwareness(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/awareness", map[string]any{"enabled": enabled})
}

// SetAutonomousLife sets the autonomous life state
// ("solitary", "interactive", "disabled", "safeguard").
func (c *Client) SetAutonomousLife(ctx context.Context, state string) error {
	return c.post(ctx, "/autonomous_life", map[string]any{"state": state})
}

// RecordAudio records from the microphones for duration seconds.
func (c *Client) RecordAudio(ctx context.Context, duration float64) (*AudioRecording, error) {
	var a AudioRecording
	if err := c.do(ctx, http.MethodPost, "/audio/record", nil, map[string]any{"duration": duration}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
