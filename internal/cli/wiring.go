package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/metrics"
	"github.com/soyeahso/peppercloud/internal/robot"
)

// newBridge builds the bridge client and event stream from config. The
// client is not connected yet.
func newBridge(c config.Config, log *logging.Logger) (*bridge.Client, *bridge.EventStream, error) {
	client := bridge.NewClient(bridge.Options{
		BaseURL: c.Bridge.URL,
		APIKey:  c.Bridge.APIKey,
		Timeout: c.Bridge.Timeout(),
	}, log)

	eventsURL := c.Bridge.EventsURL
	if eventsURL == "" {
		var err error
		eventsURL, err = bridge.EventsURL(c.Bridge.URL)
		if err != nil {
			return nil, nil, err
		}
	}
	stream := bridge.NewEventStream(bridge.StreamOptions{
		URL:            eventsURL,
		APIKey:         c.Bridge.APIKey,
		ReconnectDelay: c.Bridge.ReconnectDelay(),
		PingInterval:   c.Bridge.PingInterval(),
	}, log)
	return client, stream, nil
}

// newRobot builds the robot facade over a fresh client and event stream.
func newRobot(c config.Config, log *logging.Logger) (*robot.Robot, error) {
	client, stream, err := newBridge(c, log)
	if err != nil {
		return nil, err
	}
	return robot.New(client, stream, robot.Options{RefreshInterval: c.Bridge.StateRefresh()}, log), nil
}

// serveMetrics exposes /metrics until ctx is done. It is a no-op when
// metrics are disabled.
func serveMetrics(ctx context.Context, c config.MetricsConfig, log *logging.Logger) {
	if !c.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: c.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", c.Addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// logEvents registers handlers that log robot events.
func logEvents(r *robot.Robot, log *logging.Logger) {
	elog := log.Sub("events")

	r.OnAnyEvent(func(ctx context.Context, ev bridge.Event) error {
		elog.Debug().Str("type", ev.Type).Str("data", string(ev.Data)).Msg("robot event")
		return nil
	})
	r.OnEvent(bridge.EventTouch, func(ctx context.Context, ev bridge.Event) error {
		var touch bridge.TouchEvent
		if err := ev.Decode(&touch); err != nil {
			return err
		}
		for sensor, pressed := range touch {
			if pressed {
				elog.Info().Str("sensor", sensor).Msg("touched")
			}
		}
		return nil
	})
	r.OnEvent(bridge.EventBattery, func(ctx context.Context, ev bridge.Event) error {
		var b bridge.BatteryEvent
		if err := ev.Decode(&b); err != nil {
			return err
		}
		if b.Level != nil && *b.Level <= 15 {
			elog.Warn().Int("battery", *b.Level).Msg("battery low")
		}
		return nil
	})
	r.OnEvent(bridge.EventPeople, func(ctx context.Context, ev bridge.Event) error {
		var p bridge.PeopleEvent
		if err := ev.Decode(&p); err != nil {
			return err
		}
		elog.Info().Int("count", p.Count).Msg("people detected")
		return nil
	})
	r.OnEvent(bridge.EventSonar, func(ctx context.Context, ev bridge.Event) error {
		var s bridge.SonarEvent
		if err := ev.Decode(&s); err != nil {
			return err
		}
		if s.Obstacle {
			elog.Warn().Msg("obstacle detected")
		}
		return nil
	})
}

func describeBattery(level *float64) string {
	if level == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0f%%", *level)
}
