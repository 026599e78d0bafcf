package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bridge health, robot status and sensor readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newBridge(cfg, log)
			if err != nil {
				return err
			}
			client.Connect()
			defer client.Close()

			return printStatus(cmd.Context(), cmd.OutOrStdout(), client)
		},
	}

	return cmd
}

type statusReader interface {
	BaseURL() string
	Health(ctx context.Context) (*bridge.Health, error)
	Status(ctx context.Context) (*bridge.Status, error)
	Sensors(ctx context.Context) (*bridge.Sensors, error)
}

func printStatus(ctx context.Context, w io.Writer, c statusReader) error {
	fmt.Fprintf(w, "peppercloud %s (commit %s)\n\n", version.Version, version.Commit)
	fmt.Fprintf(w, "Config:  %s\n", paths.Config)
	fmt.Fprintf(w, "Bridge:  %s\n", c.BaseURL())
	fmt.Fprintf(w, "AI:      provider=%s model=%s fallbacks=%d\n", providerLabel(cfg.AI.Provider), cfg.AI.Model, len(cfg.AI.Fallbacks))
	fmt.Fprintln(w)

	health, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Health:  unreachable (%v)\n", err)
		return err
	}
	fmt.Fprintf(w, "Health:  %s %s (NAOqi %s)\n", health.Bridge, health.Version, health.NAOqi)

	if s, err := c.Status(ctx); err != nil {
		fmt.Fprintf(w, "Status:  error: %v\n", err)
	} else {
		battery := "unknown"
		if s.Battery != nil {
			battery = fmt.Sprintf("%d%%", *s.Battery)
		}
		fmt.Fprintf(w, "Robot:   name=%s battery=%s posture=%s autonomous_life=%s\n",
			s.RobotName, battery, s.Posture, s.AutonomousLife)
	}

	if s, err := c.Sensors(ctx); err != nil {
		fmt.Fprintf(w, "Sensors: error: %v\n", err)
	} else {
		people := "unknown"
		if s.PeopleCount != nil {
			people = fmt.Sprint(*s.PeopleCount)
		}
		fmt.Fprintf(w, "Sensors: battery=%s sonar=%s/%s people=%s\n",
			describeBattery(s.Battery), describeDistance(s.Sonar.Left), describeDistance(s.Sonar.Right), people)
	}
	return nil
}

func providerLabel(p string) string {
	if p == "" {
		return "auto"
	}
	return p
}

func describeDistance(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fm", *d)
}
