package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the robot event stream until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stream, err := newBridge(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			serveMetrics(ctx, cfg.Metrics, log)

			out := cmd.OutOrStdout()
			printEvent := func(ctx context.Context, ev bridge.Event) error {
				fmt.Fprintf(out, "%s %-8s %s\n", ev.Time().Format(time.TimeOnly), ev.Type, ev.Data)
				return nil
			}
			if len(types) == 0 {
				stream.OnAny(printEvent)
			}
			for _, t := range types {
				stream.On(t, printEvent)
			}

			if err := stream.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			stream.Stop()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "only show these event types (touch, sonar, battery, people)")
	return cmd
}
