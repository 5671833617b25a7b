package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the trial service is reachable",
		Args:  cobra.NoArgs,
		Run:   runPing,
	}

	RootCmd.AddCommand(cmd)
}

func runPing(cmd *cobra.Command, args []string) {
	c := newClient()
	if err := c.Health(cmd.Context()); err != nil {
		exitErr("ping", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"api_url":%q}`+"\n", c.BaseURL())
}
