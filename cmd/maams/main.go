package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/config"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "maams",
	Short: "MAAMS root-cause analysis validator",
	Long: `maams validates root-cause analysis grids with an LLM.

Each problem has a grid of candidate causes: columns A to E, rows going
deeper. A validation run accepts or rejects every new cause against the
cause above it, stops a column at its root cause, and opens the next row
for columns that are still unfinished.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := logging.Initialize(loaded.Logging.LoggingOptions()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		logging.Boot("config loaded from %s (provider=%s, db=%s)", configPath, cfg.LLM.Provider, cfg.Database.Driver)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "maams.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(causeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
