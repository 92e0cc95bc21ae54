package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victoris93/neuroconn/internal/bids"
	"github.com/victoris93/neuroconn/internal/fmriprep"
)

func newPreprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Run fmriprep-docker for a subject",
		Long: `preprocess invokes the containerized fmriprep pipeline for one subject
of the raw dataset. Output lands under <data>/derivatives/fmriprep and
the container log under <data>/fmriprep_logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			dataset, err := bids.Open(dataRoot(cmd))
			if err != nil {
				return err
			}
			subjects, err := dataset.Subjects()
			if err != nil {
				return err
			}
			known := false
			for _, s := range subjects {
				if s == subject {
					known = true
					break
				}
			}
			if !known {
				return fmt.Errorf("sub-%s is not listed in %s", subject, dataset.ParticipantsPath())
			}

			opts := fmriprep.Options{
				FSLicensePath:      cfg.Fmriprep.FSLicense,
				SkipBIDSValidation: cfg.Fmriprep.SkipBIDSValidation,
				FSReconAll:         cfg.Fmriprep.FSReconAll,
				MemMB:              cfg.Fmriprep.MemMB,
				Task:               cfg.Task,
			}
			if license, _ := cmd.Flags().GetString("fs-license"); license != "" {
				opts.FSLicensePath = license
			}
			if cmd.Flags().Changed("mem") {
				opts.MemMB, _ = cmd.Flags().GetInt("mem")
			}
			if cmd.Flags().Changed("task") {
				opts.Task, _ = cmd.Flags().GetString("task")
			}
			if noReconAll, _ := cmd.Flags().GetBool("no-reconall"); noReconAll {
				opts.FSReconAll = false
			}
			if opts.FSLicensePath == "" {
				return fmt.Errorf("a FreeSurfer license is required (--fs-license or fmriprep.fs_license in the config)")
			}

			runner := fmriprep.New(dataset.Root)
			return runner.Run(cmd.Context(), subject, opts)
		},
	}

	cmd.Flags().String("subject", "", "Participant label (without the sub- prefix)")
	cmd.Flags().String("fs-license", "", "Path to the FreeSurfer license file")
	cmd.Flags().Int("mem", 5000, "Container memory limit in MB")
	cmd.Flags().String("task", "rest", "Task to preprocess (empty for all tasks)")
	cmd.Flags().Bool("no-reconall", false, "Skip FreeSurfer recon-all")
	return cmd
}
