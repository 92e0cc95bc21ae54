package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victoris93/neuroconn/internal/bids"
	"github.com/victoris93/neuroconn/internal/config"
	"github.com/victoris93/neuroconn/internal/pipeline"
)

// pipelineFlags adds the flags shared by clean and connectivity.
func pipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("subject", "", "Participant label (without the sub- prefix)")
	cmd.Flags().String("task", "rest", "Task label")
	cmd.Flags().Int("parcels", 1000, "Number of atlas parcels")
	cmd.Flags().Bool("gsr", false, "Regress the global signal as well")
	cmd.Flags().String("confound-list", "", "File listing confound columns to regress")
	cmd.Flags().Bool("save", false, "Write the result as a .npy artifact")
	cmd.Flags().String("out", "", "Directory for the artifact (default: clean_data convention)")
}

// newPipeline resolves the shared flags into a configured Pipeline.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	subject, _ := cmd.Flags().GetString("subject")
	if subject == "" {
		return nil, "", fmt.Errorf("--subject is required")
	}
	applyOverrides(cmd, cfg)

	data, err := bids.OpenDerived(dataRoot(cmd))
	if err != nil {
		return nil, "", err
	}

	p := pipeline.New(data, cfg)
	p.ConfoundList, _ = cmd.Flags().GetString("confound-list")
	return p, subject, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("task") {
		cfg.Task, _ = cmd.Flags().GetString("task")
	}
	if cmd.Flags().Changed("parcels") {
		cfg.Parcels, _ = cmd.Flags().GetInt("parcels")
	}
	if cmd.Flags().Changed("gsr") {
		cfg.GSR, _ = cmd.Flags().GetBool("gsr")
	}
}

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Parcellate and denoise a subject's time series",
		Long: `clean extracts region-averaged time series with the configured atlas,
regresses confounds, band-pass filters, standardizes, and discards
warm-up volumes. One series per session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, subject, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			save, _ := cmd.Flags().GetBool("save")
			out, _ := cmd.Flags().GetString("out")

			cleaned, err := p.CleanSignal(cmd.Context(), subject, save, out)
			if err != nil {
				return err
			}
			volumes, parcels := cleaned[0].Dims()
			fmt.Printf("cleaned %d session(s): %d volumes x %d parcels\n", len(cleaned), volumes, parcels)
			return nil
		},
	}
	pipelineFlags(cmd)
	return cmd
}
