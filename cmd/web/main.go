package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "fparty-web",
		Short: "Fairytale Party website server",
		Long: `Serves the Fairytale Party static pages.

Every page is available as a full HTML document or, when the client sends
Accept: text/javascript, as a script that swaps the page into #content.

With no subcommand, serve is run.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file with FPARTY_* overrides")

	serve := newServeCmd(opts)
	root.RunE = serve.RunE
	root.AddCommand(serve, newRestartCmd(opts), newRoutesCmd())
	return root
}
