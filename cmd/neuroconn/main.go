// Command neuroconn derives functional connectivity matrices from
// fmriprep-preprocessed BIDS datasets.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/victoris93/neuroconn/internal/config"
	"github.com/victoris93/neuroconn/internal/ctxlog"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neuroconn",
		Short: "Functional connectivity from BIDS datasets",
		Long: `neuroconn turns fmriprep-preprocessed BIDS datasets into parcellated,
denoised time series and Fisher-z-transformed connectivity matrices.

It discovers subjects and sessions by the BIDS naming convention, invokes
fmriprep-docker for raw datasets, and writes .npy artifacts under the
derivatives tree.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("data", ".", "BIDS dataset root directory")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if verbose || cfg.Logging.Level == "debug" {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newInfoCmd(),
		newPreprocessCmd(),
		newCleanCmd(),
		newConnectivityCmd(),
	)

	return rootCmd
}

// loadConfig reads the --config file (defaults apply when the flag is
// unset or the file is absent).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func dataRoot(cmd *cobra.Command) string {
	root, _ := cmd.Flags().GetString("data")
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("neuroconn version %s\n", version)
		},
	}
}
