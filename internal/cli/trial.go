package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "trial <nct_id>",
		Short: "Show the full record of a trial",
		Args:  cobra.ExactArgs(1),
		Run:   runTrial,
	}

	RootCmd.AddCommand(cmd)
}

func runTrial(cmd *cobra.Command, args []string) {
	d, err := newClient().TrialDetail(cmd.Context(), args[0])
	if err != nil {
		exitErr("get trial", err)
	}
	printJSON(cmd.OutOrStdout(), d)
}
