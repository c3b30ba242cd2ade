package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fairytaleparty.co.uk/web/internal/httpserver"
	"fairytaleparty.co.uk/web/public"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			static, err := public.StaticFS()
			if err != nil {
				return err
			}
			routes, err := httpserver.Routes(httpserver.NewRouter(httpserver.Config{Static: static}))
			if err != nil {
				return err
			}
			for _, r := range routes {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}
