package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/trialscout/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show development database statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	cmd.Flags().String("db", "", "Database path (default: $TRIALSCOUT_DB or ~/.trialscout/trials.db)")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	db, _ := cmd.Flags().GetString("db")
	cfg.Merge(&config.Config{Server: config.ServerConfig{DBPath: db}})

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.Server.DBPath)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(cmd.OutOrStdout(), stats)
}
