package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	saved := &cobra.Command{
		Use:   "saved",
		Short: "List saved trials",
		Args:  cobra.NoArgs,
		Run:   runSaved,
	}
	save := &cobra.Command{
		Use:   "save <nct_id>",
		Short: "Save a trial",
		Args:  cobra.ExactArgs(1),
		Run:   runSave,
	}
	unsave := &cobra.Command{
		Use:   "unsave <nct_id>",
		Short: "Remove a trial from the saved list",
		Args:  cobra.ExactArgs(1),
		Run:   runUnsave,
	}

	RootCmd.AddCommand(saved, save, unsave)
}

func runSaved(cmd *cobra.Command, args []string) {
	trials, err := newClient().SavedTrials(cmd.Context())
	if err != nil {
		exitErr("list saved", err)
	}
	printJSON(cmd.OutOrStdout(), trials)
}

func runSave(cmd *cobra.Command, args []string) {
	resp, err := newClient().SaveTrial(cmd.Context(), args[0])
	if err != nil {
		exitErr("save", err)
	}
	printJSON(cmd.OutOrStdout(), resp)
}

func runUnsave(cmd *cobra.Command, args []string) {
	resp, err := newClient().RemoveSavedTrial(cmd.Context(), args[0])
	if err != nil {
		exitErr("unsave", err)
	}
	printJSON(cmd.OutOrStdout(), resp)
}
