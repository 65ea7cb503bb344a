package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Load both models and report their status and the compute device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		models, release := openModels(cmd.Context(), cmd.OutOrStdout())
		defer release()

		if !models.LoadStatus().Ready() {
			return errors.New("models not loaded")
		}
		return nil
	},
}
