package cmd

import (
	"errors"
	"fmt"

	"github.com/cuongbtq/mediajobs/internal/client"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get the status of a job",
	Long:  `Retrieve the current state of a job (PENDING, PROCESSING, COMPLETED, FAILED) with its artifact or error reason.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().GetJob(cmd.Context(), args[0])
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.NotFound() {
				return fmt.Errorf("job %s not found", args[0])
			}
			return fmt.Errorf("failed to get job: %w", err)
		}

		printStatus(cmd, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
