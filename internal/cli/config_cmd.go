package cli

import (
	"fmt"

	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd, &cfg)
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

// validateConfig prints every issue and fails when there is at least one.
func validateConfig(cmd *cobra.Command, c *config.Config) error {
	issues := config.Validate(c)
	if len(issues) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Config OK")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Validation issues (%d):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", issue)
	}
	return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
}
