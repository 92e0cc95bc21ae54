package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/victoris93/neuroconn/internal/bids"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show dataset name, description, and participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := bids.Open(dataRoot(cmd))
			if err != nil {
				return err
			}
			name, err := dataset.Name()
			if err != nil {
				return err
			}
			subjects, err := dataset.Subjects()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				desc, err := dataset.Description()
				if err != nil {
					return err
				}
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"name":        name,
					"path":        dataset.Root,
					"subjects":    subjects,
					"description": desc,
				})
			}

			fmt.Printf("Dataset: %s\n", name)
			fmt.Printf("Path: %s\n", dataset.Root)
			fmt.Printf("Subjects (%d):\n", len(subjects))
			for _, subject := range subjects {
				fmt.Printf("  sub-%s\n", subject)
			}
			return nil
		},
	}
}
