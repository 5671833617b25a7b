// Package cli implements the trialscout CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/trialscout/internal/config"
	"github.com/rcliao/trialscout/internal/gateway"
	"github.com/rcliao/trialscout/internal/store"
)

var (
	configPath string
	apiURL     string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "trialscout",
	Short: "Browse clinical trials matched to a patient transcript",
	Long: "Upload a clinical transcript, browse the matching trials, rank them, ask questions and keep a saved list. " +
		"Results are printed as JSON on stdout; logs go to stderr.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $TRIALSCOUT_CONFIG or ~/.config/trialscout/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Trial service URL (default: $TRIALSCOUT_API_URL or http://localhost:8007)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.NewLoader(slog.Default()).Load(configPath)
	if err != nil {
		return err
	}
	c.Merge(&config.Config{
		API: config.APIConfig{BaseURL: apiURL},
		Log: config.LogConfig{Level: logLevel, Format: logFormat},
	})
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	l, err := config.NewLogger(cmd.ErrOrStderr(), c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	slog.SetDefault(l)
	return nil
}

func newClient() *gateway.Client {
	return gateway.New(cfg.API.BaseURL, gateway.Options{Logger: logger})
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Server.DBPath, logger)
}

// readInput returns the contents of the file named by the first arg, or
// stdin when the arg is "-" or absent and stdin is piped.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && len(args) == 0 {
		stat, _ := f.Stat()
		if stat.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("transcript is required (file argument or stdin)")
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("transcript is empty")
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
