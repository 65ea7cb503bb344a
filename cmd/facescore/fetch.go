package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/facescore/internal/registry"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the detector model into the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		artifact := registry.DetectorArtifact(cfg.Models.Detector)
		path, err := newResolver().Resolve(cmd.Context(), artifact)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Detector model: %s\n", path)
		return nil
	},
}
