package robot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeBridge serves the bridge endpoints. handle, when set, may take over a
// request by returning true.
type fakeBridge struct {
	srv     *httptest.Server
	mu      sync.Mutex
	paths   []string
	status  atomic.Value // string body for /status
	failing atomic.Bool
	handle  func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeBridge(t *testing.T) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{}
	fb.status.Store(`{"ok":true,"battery":80,"posture":"Standing","robot_name":"Pepper","autonomous_life":"disabled"}`)
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.paths = append(fb.paths, r.URL.Path)
		fb.mu.Unlock()

		if fb.handle != nil && fb.handle(w, r) {
			return
		}
		if fb.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"ok":false,"error":"naoqi down"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = io.WriteString(w, `{"ok":true,"bridge":"pepper_bridge","version":"2.0.0","naoqi":"2.5"}`)
		case "/status":
			_, _ = io.WriteString(w, fb.status.Load().(string))
		case "/picture":
			_, _ = io.WriteString(w, `{"ok":true,"image":"abc","width":640,"height":480,"format":"jpeg"}`)
		case "/audio/record":
			_, _ = io.WriteString(w, `{"ok":true,"audio":"UklGRg==","format":"wav","duration":2.0}`)
		case "/sensors":
			_, _ = io.WriteString(w, `{"ok":true,"battery":80,"touch":{},"sonar":{"left":1.0,"right":1.1},"people_count":0}`)
		default:
			_, _ = io.WriteString(w, `{"ok":true}`)
		}
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBridge) client() *bridge.Client {
	return bridge.NewClient(bridge.Options{BaseURL: fb.srv.URL, Timeout: 2 * time.Second}, silentLog())
}

func (fb *fakeBridge) seen() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.paths...)
}

type fakeEvents struct {
	started atomic.Int32
	stopped atomic.Int32
	on      atomic.Int32
}

func (f *fakeEvents) Start(context.Context) error { f.started.Add(1); return nil }
func (f *fakeEvents) Stop()                     { f.stopped.Add(1) }
func (f *fakeEvents) On(string, bridge.Handler) { f.on.Add(1) }
func (f *fakeEvents) OnAny(bridge.Handler)      { f.on.Add(1) }

func TestInitializeAndShutdown(t *testing.T) {
	fb := newFakeBridge(t)
	ev := &fakeEvents{}
	r := New(fb.client(), ev, Options{RefreshInterval: time.Hour}, silentLog())

	require.True(t, r.Initialize(context.Background()))
	assert.True(t, r.Initialize(context.Background()), "second initialize is a no-op")
	assert.Equal(t, int32(1), ev.started.Load())

	s := r.State()
	assert.True(t, s.Connected)
	assert.True(t, s.BatteryKnown)
	assert.Equal(t, 80, s.BatteryLevel)
	assert.Equal(t, "Standing", s.Posture)
	assert.Equal(t, "disabled", s.AutonomousLife)
	assert.Equal(t, []string{"/health", "/status"}, fb.seen())

	r.Shutdown()
	r.Shutdown()
	assert.Equal(t, int32(1), ev.stopped.Load())
	assert.False(t, r.State().Connected)
	assert.False(t, r.Speak(context.Background(), "hi", false), "actions fail after shutdown")
}

func TestInitializeUnreachable(t *testing.T) {
	c := bridge.NewClient(bridge.Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, silentLog())
	ev := &fakeEvents{}
	r := New(c, ev, Options{}, silentLog())

	assert.False(t, r.Initialize(context.Background()))
	assert.False(t, c.Connected(), "transport released")
	assert.Zero(t, ev.started.Load())
	assert.Nil(t, r.GetSensors(context.Background()))
	r.Shutdown()
}

func TestActionsBeforeInitialize(t *testing.T) {
	fb := newFakeBridge(t)
	r := New(fb.client(), nil, Options{}, silentLog())
	ctx := context.Background()

	assert.False(t, r.MoveForward(ctx, 0.5, 0.3))
	assert.False(t, r.EmergencyStop(ctx))
	assert.Nil(t, r.TakePicture(ctx, 0))
	assert.Empty(t, fb.seen())
}

func TestActionsAndReads(t *testing.T) {
	fb := newFakeBridge(t)
	r := New(fb.client(), nil, Options{RefreshInterval: time.Hour}, silentLog())
	require.True(t, r.Initialize(context.Background()))
	defer r.Shutdown()
	ctx := context.Background()

	assert.True(t, r.Speak(ctx, "hello", true))
	assert.True(t, r.MoveForward(ctx, 0.5, 0.3))
	assert.True(t, r.Turn(ctx, 45))
	assert.True(t, r.MoveHead(ctx, 10, 5))
	assert.True(t, r.SetPosture(ctx, "Crouch"))
	assert.True(t, r.SetEyeColor(ctx, "green"))
	assert.True(t, r.PlayAnimation(ctx, "animations/Stand/Gestures/Hey_1"))
	assert.True(t, r.Stop(ctx))
	assert.True(t, r.SetVolume(ctx, 60))
	assert.True(t, r.MoveTo(ctx, 1, 0.5, 0))
	assert.True(t, r.WakeUp(ctx))
	assert.True(t, r.Rest(ctx))
	assert.True(t, r.SetChestColor(ctx, "blue"))
	assert.True(t, r.SetAwareness(ctx, true))
	assert.True(t, r.SetAutonomousLife(ctx, "solitary"))

	health := r.Health(ctx)
	require.NotNil(t, health)
	assert.Equal(t, "pepper_bridge", health.Bridge)
	audio := r.RecordAudio(ctx, 2)
	require.NotNil(t, audio)
	assert.Equal(t, "wav", audio.Format)
	assert.Equal(t, 2.0, audio.Duration)

	pic := r.TakePicture(ctx, bridge.CameraTop)
	require.NotNil(t, pic)
	assert.Equal(t, 640, pic.Width)
	require.NotNil(t, r.GetSensors(ctx))

	assert.Contains(t, fb.seen(), "/leds/eyes")
	assert.Contains(t, fb.seen(), "/move/head")
	for _, path := range []string{"/volume", "/move/to", "/wake_up", "/rest", "/leds/chest", "/awareness", "/autonomous_life", "/audio/record"} {
		assert.Contains(t, fb.seen(), path)
	}
}

func TestActionFailureReturnsFalse(t *testing.T) {
	fb := newFakeBridge(t)
	r := New(fb.client(), nil, Options{RefreshInterval: time.Hour}, silentLog())
	require.True(t, r.Initialize(context.Background()))
	defer r.Shutdown()

	fb.failing.Store(true)
	ctx := context.Background()
	assert.False(t, r.Speak(ctx, "hello", false))
	assert.False(t, r.SetPosture(ctx, "Stand"))
	assert.Nil(t, r.TakePicture(ctx, 0))
	assert.Nil(t, r.Status(ctx))
	assert.Nil(t, r.Health(ctx))
	assert.Nil(t, r.RecordAudio(ctx, 1))
	assert.False(t, r.Rest(ctx))
}

func TestStateRefresh(t *testing.T) {
	fb := newFakeBridge(t)
	r := New(fb.client(), nil, Options{RefreshInterval: 20 * time.Millisecond}, silentLog())
	require.True(t, r.Initialize(context.Background()))
	defer r.Shutdown()

	fb.status.Store(`{"ok":true,"battery":12,"posture":"Crouching","autonomous_life":"solitary"}`)
	require.Eventually(t, func() bool {
		return r.State().BatteryLevel == 12
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Crouching", r.State().Posture)
	assert.True(t, r.State().LowBattery(15))

	fb.failing.Store(true)
	require.Eventually(t, func() bool {
		return !r.State().Connected
	}, 2*time.Second, 10*time.Millisecond)
	s := r.State()
	assert.Equal(t, 12, s.BatteryLevel, "last known battery kept")
	assert.Equal(t, "Crouching", s.Posture)

	fb.failing.Store(false)
	require.Eventually(t, func() bool {
		return r.State().Connected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefreshKeepsBatteryWhenUnreported(t *testing.T) {
	fb := newFakeBridge(t)
	r := New(fb.client(), nil, Options{RefreshInterval: time.Hour}, silentLog())
	require.True(t, r.Initialize(context.Background()))
	defer r.Shutdown()

	fb.status.Store(`{"ok":true,"battery":null,"posture":"Standing"}`)
	r.refresh(context.Background())
	assert.Equal(t, 80, r.State().BatteryLevel)
	assert.True(t, r.State().BatteryKnown)
}

func TestEmergencyStopBypassesMotionLock(t *testing.T) {
	fb := newFakeBridge(t)
	release := make(chan struct{})
	walking := make(chan struct{})
	var inflight, maxInflight atomic.Int32
	fb.handle = func(w http.ResponseWriter, r *http.Request) bool {
		switch r.URL.Path {
		case "/move/forward", "/move/turn":
			n := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				m := maxInflight.Load()
				if n <= m || maxInflight.CompareAndSwap(m, n) {
					break
				}
			}
			if r.URL.Path == "/move/forward" {
				close(walking)
				<-release
			}
			_, _ = io.WriteString(w, `{"ok":true}`)
			return true
		}
		return false
	}

	r := New(fb.client(), nil, Options{RefreshInterval: time.Hour}, silentLog())
	require.True(t, r.Initialize(context.Background()))
	defer r.Shutdown()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.True(t, r.MoveForward(ctx, 2, 0.3))
	}()
	<-walking
	go func() {
		defer wg.Done()
		assert.True(t, r.Turn(ctx, 90))
	}()

	stopped := make(chan bool, 1)
	go func() { stopped <- r.EmergencyStop(ctx) }()
	select {
	case ok := <-stopped:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("emergency stop waited behind locomotion")
	}

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), maxInflight.Load(), "locomotion calls are serialized")

	seen := fb.seen()
	stopIdx, turnIdx := -1, -1
	for i, p := range seen {
		switch p {
		case "/emergency_stop":
			stopIdx = i
		case "/move/turn":
			turnIdx = i
		}
	}
	assert.Less(t, stopIdx, turnIdx, "emergency stop dispatched before the queued turn")
}

func TestEventRegistrationDelegates(t *testing.T) {
	ev := &fakeEvents{}
	r := New(newFakeBridge(t).client(), ev, Options{}, silentLog())
	r.OnEvent(bridge.EventTouch, func(context.Context, bridge.Event) error { return nil })
	r.OnAnyEvent(func(context.Context, bridge.Event) error { return nil })
	assert.Equal(t, int32(2), ev.on.Load())

	bare := New(newFakeBridge(t).client(), nil, Options{}, silentLog())
	bare.OnEvent(bridge.EventTouch, func(context.Context, bridge.Event) error { return nil })
}

func TestStateFormatting(t *testing.T) {
	assert.Equal(t, "unknown", State{}.Battery())
	assert.Equal(t, "55%", State{BatteryLevel: 55, BatteryKnown: true}.Battery())
	assert.False(t, State{}.LowBattery(20), "unknown battery is not low")
}
