package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/photo-grid/internal/config"
	"github.com/menta2k/photo-grid/internal/utils"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the photo-grid configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if utils.FileExists(path) && !mustGetBool(cmd, "force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
