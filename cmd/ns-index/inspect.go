package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"FlowSpectra/internal/writer"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [snapshot.gob]",
	Short: "Print a snapshot written by the gob writer as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := writer.ReadSnapshot(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}
