package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/trialscout/internal/config"
	"github.com/rcliao/trialscout/internal/devserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the development trial catalog",
	}
	cmd.PersistentFlags().String("db", "", "Database path (default: $TRIALSCOUT_DB or ~/.trialscout/trials.db)")

	export := &cobra.Command{
		Use:   "export",
		Short: "Print the catalog as YAML",
		Args:  cobra.NoArgs,
		Run:   runCatalogExport,
	}
	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Add or replace trials from a YAML catalog",
		Args:  cobra.ExactArgs(1),
		Run:   runCatalogImport,
	}

	cmd.AddCommand(export, imp)
	RootCmd.AddCommand(cmd)
}

func catalogDB(cmd *cobra.Command) {
	db, _ := cmd.Flags().GetString("db")
	cfg.Merge(&config.Config{Server: config.ServerConfig{DBPath: db}})
}

func runCatalogExport(cmd *cobra.Command, args []string) {
	catalogDB(cmd)
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	trials, err := s.ListTrials(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	b, err := yaml.Marshal(devserver.Catalog{Trials: trials})
	if err != nil {
		exitErr("export", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
}

func runCatalogImport(cmd *cobra.Command, args []string) {
	catalogDB(cmd)
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := devserver.Seed(cmd.Context(), s, args[0])
	if err != nil {
		exitErr("import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", n)
}
