package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victoris93/neuroconn/internal/pipeline"
)

func newConnectivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connectivity",
		Short: "Compute a subject's connectivity matrices",
		Long: `connectivity correlates a subject's cleaned parcel time series into a
parcels x parcels Pearson matrix per session, Fisher-z-transformed by
default. With --concat, all sessions are row-stacked and correlated
into a single matrix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, subject, err := newPipeline(cmd)
			if err != nil {
				return err
			}

			opts := pipeline.ConnOptions{ZTransform: true}
			opts.TimeSeriesPath, _ = cmd.Flags().GetString("ts")
			opts.Concat, _ = cmd.Flags().GetBool("concat")
			opts.Save, _ = cmd.Flags().GetBool("save")
			opts.SaveTo, _ = cmd.Flags().GetString("out")
			if noZ, _ := cmd.Flags().GetBool("no-z"); noZ {
				opts.ZTransform = false
			}

			matrices, err := p.ConnMatrix(cmd.Context(), subject, opts)
			if err != nil {
				return err
			}
			parcels, _ := matrices[0].Dims()
			fmt.Printf("computed %d matrix(es): %d x %d\n", len(matrices), parcels, parcels)
			return nil
		},
	}
	pipelineFlags(cmd)
	cmd.Flags().String("ts", "", "Path to a saved clean-ts .npy artifact to correlate")
	cmd.Flags().Bool("concat", false, "Concatenate sessions before correlating")
	cmd.Flags().Bool("no-z", false, "Skip the Fisher z-transform")
	return cmd
}
