package cmd

import (
	"fmt"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List your jobs, newest first",
	Long: `List the requester's jobs, newest first, optionally filtered by state.

Example:
  genctl jobs --state FAILED --page-size 10
  genctl jobs --cursor <next_cursor>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		state, _ := flags.GetString("state")
		pageSize, _ := flags.GetInt("page-size")
		cursor, _ := flags.GetString("cursor")

		requester, err := requesterID()
		if err != nil {
			return err
		}

		resp, err := newClient().ListJobs(cmd.Context(), dto.ListJobsRequest{
			RequesterID: requester,
			State:       state,
			PageSize:    pageSize,
			Cursor:      cursor,
		})
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}

		if len(resp.Jobs) == 0 {
			cmd.Println("No jobs found")
			return nil
		}

		cmd.Printf("%-36s  %-24s  %-12s  %s\n", "ID", "SUBJECT", "STATE", "UPDATED")
		for _, job := range resp.Jobs {
			cmd.Printf("%-36s  %-24s  %s  %s\n", job.ID, job.SubjectID, colorizeState(job.State), formatTimestamp(job.UpdatedAt))
		}
		if resp.NextCursor != "" {
			cmd.Printf("\nMore results: genctl jobs --cursor %s\n", resp.NextCursor)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().String("state", "", "filter by state (PENDING, PROCESSING, COMPLETED, FAILED)")
	jobsCmd.Flags().Int("page-size", 0, "page size (server default when 0)")
	jobsCmd.Flags().String("cursor", "", "cursor returned by a previous page")
}
