// Package robot is the high-level facade over the bridge: boolean actions,
// nil-on-failure reads, a motion lock, and a periodically refreshed state
// snapshot.
package robot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/logging"
)

const (
	defaultRefreshInterval = 5 * time.Second
	headSpeed              = 0.2
	postureSpeed           = 0.5
	ledDuration            = 0.5
)

// Bridge is the subset of *bridge.Client the facade drives.
type Bridge interface {
	Connect()
	Close()
	Connected() bool

	Health(ctx context.Context) (*bridge.Health, error)
	Status(ctx context.Context) (*bridge.Status, error)
	Sensors(ctx context.Context) (*bridge.Sensors, error)
	Picture(ctx context.Context, camera, resolution int) (*bridge.Picture, error)
	RecordAudio(ctx context.Context, duration float64) (*bridge.AudioRecording, error)

	Speak(ctx context.Context, req bridge.SpeakRequest) error
	SetVolume(ctx context.Context, level int) error
	MoveForward(ctx context.Context, distance, speed float64) error
	MoveTurn(ctx context.Context, angle float64) error
	MoveHead(ctx context.Context, yaw, pitch, speed float64) error
	MoveTo(ctx context.Context, x, y, theta float64) error
	Stop(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
	SetPosture(ctx context.Context, posture string, speed float64) error
	WakeUp(ctx context.Context) error
	Rest(ctx context.Context) error
	SetEyeLEDs(ctx context.Context, color bridge.LEDColor) error
	SetChestLEDs(ctx context.Context, color bridge.LEDColor) error
	PlayAnimation(ctx context.Context, name string) error
	SetAwareness(ctx context.Context, enabled bool) error
	SetAutonomousLife(ctx context.Context, state string) error
}

// Events is the subset of *bridge.EventStream the facade drives.
type Events interface {
	Start(ctx context.Context) error
	Stop()
	On(eventType string, h bridge.Handler)
	OnAny(h bridge.Handler)
}

// Options configures a Robot.
type Options struct {
	RefreshInterval time.Duration
}

// Robot is the facade the tool executor and CLI talk to. Client errors are
// logged and reported as false or nil, never returned.
type Robot struct {
	client Bridge
	events Events
	opts   Options
	log    *logging.Logger

	state  atomic.Pointer[State]
	motion sync.Mutex

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a facade. events may be nil when no event feed is wanted.
func New(client Bridge, events Events, opts Options, log *logging.Logger) *Robot {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}
	r := &Robot{
		client: client,
		events: events,
		opts:   opts,
		log:    log.Sub("robot"),
	}
	r.state.Store(initialState())
	return r
}

// Initialize connects, probes the bridge, starts the event feed and the
// state refresher. It returns false, with the transport released, when the
// bridge is unreachable.
func (r *Robot) Initialize(ctx context.Context) bool {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.running {
		return true
	}

	r.client.Connect()
	health, err := r.client.Health(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("bridge unreachable")
		r.client.Close()
		r.markDisconnected()
		return false
	}
	r.log.Info().
		Str("bridge", health.Bridge).
		Str("version", health.Version).
		Str("naoqi", health.NAOqi).
		Msg("bridge healthy")

	runCtx, cancel := context.WithCancel(context.Background())
	if r.events != nil {
		if err := r.events.Start(runCtx); err != nil {
			r.log.Warn().Err(err).Msg("event stream not started")
		}
	}

	r.refresh(ctx)

	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	go r.refreshLoop(runCtx, r.done)

	s := r.State()
	r.log.Info().
		Str("robot", s.RobotName).
		Str("battery", s.Battery()).
		Str("posture", s.Posture).
		Msg("robot initialized")
	return true
}

// Shutdown stops the refresher and the event feed and releases the
// transport. Safe to call more than once.
func (r *Robot) Shutdown() {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if !r.running {
		r.client.Close()
		return
	}
	r.running = false

	r.cancel()
	<-r.done
	if r.events != nil {
		r.events.Stop()
	}
	r.client.Close()
	r.markDisconnected()
	r.log.Info().Msg("robot shut down")
}

// State returns the current snapshot.
func (r *Robot) State() State {
	return *r.state.Load()
}

// OnEvent registers an event handler for one event type.
func (r *Robot) OnEvent(eventType string, h bridge.Handler) {
	if r.events == nil {
		r.log.Warn().Str("event", eventType).Msg("no event stream configured")
		return
	}
	r.events.On(eventType, h)
}

// OnAnyEvent registers an event handler for every event.
func (r *Robot) OnAnyEvent(h bridge.Handler) {
	if r.events == nil {
		r.log.Warn().Msg("no event stream configured")
		return
	}
	r.events.OnAny(h)
}

func (r *Robot) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh stores a new snapshot from /status. On failure the last known
// battery and posture are kept and Connected is cleared.
func (r *Robot) refresh(ctx context.Context) {
	prev := r.state.Load()
	status, err := r.status(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if prev.Connected {
			r.log.Warn().Err(err).Msg("robot state refresh failed")
		}
		r.markDisconnected()
		return
	}

	next := *prev
	next.Connected = true
	next.Posture = status.Posture
	next.AutonomousLife = status.AutonomousLife
	if status.RobotName != "" {
		next.RobotName = status.RobotName
	}
	if status.Battery != nil {
		next.BatteryLevel = *status.Battery
		next.BatteryKnown = true
	}
	next.UpdatedAt = time.Now()
	r.state.Store(&next)
}

func (r *Robot) status(ctx context.Context) (s *bridge.Status, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("bridge client unavailable: %v", rec)
		}
	}()
	return r.client.Status(ctx)
}

func (r *Robot) markDisconnected() {
	next := *r.state.Load()
	next.Connected = false
	next.UpdatedAt = time.Now()
	r.state.Store(&next)
}

// act runs one bridge call and reports success.
func (r *Robot) act(action string, fn func() error) (ok bool) {
	if !r.client.Connected() {
		r.log.Warn().Str("action", action).Msg("robot not connected")
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("action", action).Interface("panic", rec).Msg("robot action panicked")
			ok = false
		}
	}()
	if err := fn(); err != nil {
		r.log.Error().Str("action", action).Err(err).Msg("robot action failed")
		return false
	}
	return true
}

// move runs a locomotion call under the motion lock.
func (r *Robot) move(action string, fn func() error) bool {
	r.motion.Lock()
	defer r.motion.Unlock()
	return r.act(action, fn)
}

// read runs one bridge read, returning nil on failure.
func read[T any](r *Robot, action string, fn func() (*T, error)) (out *T) {
	if !r.client.Connected() {
		r.log.Warn().Str("action", action).Msg("robot not connected")
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("action", action).Interface("panic", rec).Msg("robot read panicked")
			out = nil
		}
	}()
	v, err := fn()
	if err != nil {
		r.log.Error().Str("action", action).Err(err).Msg("robot read failed")
		return nil
	}
	return v
}
