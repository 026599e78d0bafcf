package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/metrics"
	"github.com/soyeahso/peppercloud/internal/version"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultPingInterval   = 20 * time.Second
	writeWait             = 5 * time.Second

	// closeUnauthorized is the close code the bridge sends for a bad api_key.
	closeUnauthorized = 4001
)

// ErrStreamStopped is returned by Start after Stop.
var ErrStreamStopped = errors.New("bridge: event stream stopped")

// StreamOptions configures an EventStream.
type StreamOptions struct {
	URL            string
	APIKey         string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// EventsURL derives the events WebSocket URL from the bridge base URL.
func EventsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid bridge url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid bridge url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/events"
	u.RawQuery = ""
	return u.String(), nil
}

// EventStream consumes the bridge event feed in the background and
// dispatches each event to registered handlers. It reconnects after any
// failure until stopped.
type EventStream struct {
	opts   StreamOptions
	dialer *websocket.Dialer
	log    *logging.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	connected atomic.Bool
}

// NewEventStream creates a stopped stream.
func NewEventStream(opts StreamOptions, log *logging.Logger) *EventStream {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &EventStream{
		opts:     opts,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		log:      log.Sub("bridge.events"),
		handlers: make(map[string][]Handler),
	}
}

// On registers a handler for one event type.
func (s *EventStream) On(eventType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[eventType] = append(s.handlers[eventType], h)
}

// OnAny registers a handler for every event.
func (s *EventStream) OnAny(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.any = append(s.any, h)
}

// Connected reports whether a socket is currently open.
func (s *EventStream) Connected() bool {
	return s.connected.Load()
}

// Start launches the background listener. Starting a running stream is a
// no-op. Once ctx is canceled the listener exits and the stream may be
// started again.
func (s *EventStream) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.stopped {
		return ErrStreamStopped
	}
	if s.cancel != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

// Stop cancels the listener, closes the socket and waits for the
// goroutine to exit. Safe to call more than once.
//
// Stop must not be called from a Handler, since it waits for the goroutine
// running that handler. Cancel the context given to Start instead.
func (s *EventStream) Stop() {
	s.lifeMu.Lock()
	if s.stopped {
		s.lifeMu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("event stream stopped")
}

func (s *EventStream) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.lifeMu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.done = nil, nil
		}
		s.lifeMu.Unlock()
		close(done)
	}()
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}

		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code == closeUnauthorized {
			s.log.Error().Msg("event stream unauthorized, check BRIDGE_API_KEY")
		} else {
			s.log.Warn().Err(err).Dur("retry", s.opts.ReconnectDelay).Msg("event stream disconnected")
		}

		t := time.NewTimer(s.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		metrics.RecordReconnect()
	}
}

// session runs one connection until it fails or ctx is canceled.
func (s *EventStream) session(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if s.opts.APIKey != "" {
		header.Set("X-API-Key", s.opts.APIKey)
	}

	s.log.Info().Str("url", s.opts.URL).Msg("connecting to event stream")
	conn, _, err := s.dialer.DialContext(ctx, s.dialURL(), header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.connected.Store(true)
	metrics.SetStreamConnected(true)
	s.log.Info().Msg("event stream connected")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		conn.Close()
		wg.Wait()
		s.connected.Store(false)
		metrics.SetStreamConnected(false)
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	go func() {
		defer wg.Done()
		s.keepAlive(conn, stop)
	}()

	readWait := 2 * s.opts.PingInterval
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.Warn().Err(err).Msg("non-JSON message on event stream")
			continue
		}
		if ev.Type == eventPong {
			continue
		}
		if ev.Type == "" {
			ev.Type = "unknown"
		}
		s.dispatch(ctx, ev)
	}
}

func (s *EventStream) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
				s.log.Debug().Err(err).Msg("keepalive ping failed")
				return
			}
		}
	}
}

func (s *EventStream) dialURL() string {
	if s.opts.APIKey == "" {
		return s.opts.URL
	}
	sep := "?"
	if strings.Contains(s.opts.URL, "?") {
		sep = "&"
	}
	return s.opts.URL + sep + "api_key=" + url.QueryEscape(s.opts.APIKey)
}

// dispatch delivers ev to every any-handler, then every handler registered
// for its type. The handler lists are copied before any handler runs.
func (s *EventStream) dispatch(ctx context.Context, ev Event) {
	metrics.RecordEvent(ev.Type)

	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.any)+len(s.handlers[ev.Type]))
	handlers = append(handlers, s.any...)
	handlers = append(handlers, s.handlers[ev.Type]...)
	s.mu.RUnlock()

	for _, h := range handlers {
		s.invoke(ctx, h, ev)
	}
}

func (s *EventStream) invoke(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("event", ev.Type).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	if err := h(ctx, ev); err != nil {
		s.log.Error().Str("event", ev.Type).Err(err).Msg("event handler error")
	}
}
