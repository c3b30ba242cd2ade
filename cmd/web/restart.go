package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fairytaleparty.co.uk/web/internal/platform/config"
	"fairytaleparty.co.uk/web/internal/reload"
)

func newRestartCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Touch the restart sentinel so a running server reloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				cfg, err := config.Load(config.WithEnvFile(opts.envFile))
				if err != nil {
					return err
				}
				path = cfg.Paths.RestartFile
			}
			if err := reload.Touch(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "touched %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "sentinel path (defaults to FPARTY_RESTART_FILE)")
	return cmd
}
