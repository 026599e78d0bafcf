package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/peppercloud/internal/agent"
	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/soyeahso/peppercloud/internal/llm"
	"github.com/soyeahso/peppercloud/internal/robot"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the robot through the configured AI model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			provider, err := llm.NewFromConfig(cfg.AI, log)
			if err != nil {
				return err
			}

			rb, err := newRobot(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			serveMetrics(ctx, cfg.Metrics, log)

			if !rb.Initialize(ctx) {
				return fmt.Errorf("robot bridge unreachable at %s", cfg.Bridge.URL)
			}
			defer rb.Shutdown()
			logEvents(rb, log)

			orch := agent.NewOrchestrator(orchestratorConfig(cfg), provider, agent.NewExecutor(rb, log), log)

			out := cmd.OutOrStdout()
			if message != "" {
				printResult(out, orch.ProcessUserInput(ctx, message))
				return nil
			}
			return runREPL(ctx, os.Stdin, out, orch, rb)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit")
	return cmd
}

func orchestratorConfig(c config.Config) agent.Config {
	return agent.Config{
		MaxRounds:        c.Conversation.MaxRounds,
		HistoryExchanges: c.Conversation.HistoryExchanges,
		MaxTokens:        c.AI.MaxTokens,
		Temperature:      c.AI.Temperature,
		RobotName:        c.Conversation.RobotName,
		ExtraPrompt:      c.Conversation.ExtraPrompt,
	}
}

// conversation is the orchestrator surface the REPL drives.
type conversation interface {
	ProcessUserInput(ctx context.Context, text string) agent.Result
	History() []llm.Message
	ClearHistory()
}

type stateSource interface {
	State() robot.State
}

// runREPL reads one user message per line until EOF, /quit or ctx is done.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, conv conversation, state stateSource) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Type a message, or /help for commands.")
	for {
		fmt.Fprint(out, "you> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, "  /clear    forget the conversation")
			fmt.Fprintln(out, "  /history  show the conversation")
			fmt.Fprintln(out, "  /state    show the robot state")
			fmt.Fprintln(out, "  /quit     exit")
			continue
		case "/clear":
			conv.ClearHistory()
			fmt.Fprintln(out, "(history cleared)")
			continue
		case "/history":
			printHistory(out, conv.History())
			continue
		case "/state":
			s := state.State()
			fmt.Fprintf(out, "  %s: connected=%v battery=%s posture=%s autonomous_life=%s\n",
				s.RobotName, s.Connected, s.Battery(), s.Posture, s.AutonomousLife)
			continue
		}

		printResult(out, conv.ProcessUserInput(ctx, line))
	}
}

func printResult(out io.Writer, res agent.Result) {
	for _, tc := range res.ToolCalls {
		fmt.Fprintf(out, "  [%s] %s\n", tc.Name, tc.Result)
	}
	if res.Photo != nil {
		fmt.Fprintf(out, "  (photo %dx%d %s, %d bytes base64)\n", res.Photo.Width, res.Photo.Height, res.Photo.Format, len(res.Photo.Image))
	}
	fmt.Fprintf(out, "pepper> %s\n", res.Text)
}

func printHistory(out io.Writer, history []llm.Message) {
	if len(history) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return
	}
	for _, m := range history {
		switch {
		case m.IsToolResult():
			fmt.Fprintf(out, "  tool results: %d\n", len(m.Blocks))
		case len(m.ToolUses()) > 0:
			names := make([]string, 0, len(m.Blocks))
			for _, u := range m.ToolUses() {
				names = append(names, u.Name)
			}
			fmt.Fprintf(out, "  %s: %s [tools: %s]\n", m.Role, m.PlainText(), strings.Join(names, ", "))
		default:
			fmt.Fprintf(out, "  %s: %s\n", m.Role, m.PlainText())
		}
	}
}
