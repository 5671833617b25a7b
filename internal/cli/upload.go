package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "upload [file|-]",
		Short: "Upload a transcript and print the clinical notes",
		Long:  "Upload a transcript. It is read from the file argument, or from stdin when the argument is - or omitted.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runUpload,
	}

	RootCmd.AddCommand(cmd)
}

func runUpload(cmd *cobra.Command, args []string) {
	transcript, err := readInput(cmd, args)
	if err != nil {
		exitErr("read transcript", err)
	}

	notes, err := newClient().UploadTranscript(cmd.Context(), transcript)
	if err != nil {
		exitErr("upload", err)
	}
	printJSON(cmd.OutOrStdout(), notes)
}
