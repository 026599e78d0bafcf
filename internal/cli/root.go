package cli

import (
	"errors"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths     config.Paths
	cfg       config.Config
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peppercloud",
		Short: "peppercloud: conversational AI control for a Pepper robot",
		Long: "peppercloud connects a hosted AI model to a Pepper robot through the robot's bridge service. " +
			"The model talks, moves and looks around by calling tools.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			if err := loadEnvFiles(paths.Env, ".env"); err != nil {
				return err
			}

			cfg, err = config.Load(paths.Config)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			log, logCloser, err = logging.NewWithOptions(logging.Options{
				Level: cfg.Logging.Level,
				Style: cfg.Logging.Style,
				File:  cfg.Logging.File,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.peppercloud/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newChatCmd())

	return cmd
}

// loadEnvFiles loads KEY=VALUE files into the process environment. Values
// already set in the environment win. Missing files are skipped.
func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
