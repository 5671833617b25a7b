package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rcliao/trialscout/internal/config"
	"github.com/rcliao/trialscout/internal/devserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development trial service",
		Long:  "Run a local trial-matching service backed by SQLite, seeded from a YAML catalog or the built-in trials.",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: $TRIALSCOUT_ADDR or :8007)")
	cmd.Flags().String("db", "", "Database path (default: $TRIALSCOUT_DB or ~/.trialscout/trials.db)")
	cmd.Flags().String("catalog", "", "YAML trial catalog to seed from (default: $TRIALSCOUT_CATALOG or built-in)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	db, _ := cmd.Flags().GetString("db")
	catalog, _ := cmd.Flags().GetString("catalog")
	cfg.Merge(&config.Config{Server: config.ServerConfig{Addr: addr, DBPath: db, CatalogPath: catalog}})

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := devserver.Seed(ctx, s, cfg.Server.CatalogPath)
	if err != nil {
		exitErr("seed catalog", err)
	}
	if st, err := s.Stats(ctx, cfg.Server.DBPath); err == nil {
		logger.Info("store ready",
			slog.String("db", st.DBPath),
			slog.Int("seeded", n),
			slog.Int("trials", st.Trials),
			slog.Int("clinical_notes", st.ClinicalNotes),
			slog.Int("saved_trials", st.SavedTrials))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := devserver.New(s, devserver.Options{Logger: logger, Registry: reg})
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && ctx.Err() == nil {
		exitErr("serve", err)
	}
	logger.Info("dev server stopped")
}
