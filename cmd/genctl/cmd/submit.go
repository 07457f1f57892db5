package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a media generation job",
	Long: `Submit a generation job for a subject. Submitting the same subject, prompt
and style again while the first job is still active returns the existing job.

Example:
  genctl submit --subject nft-42 --prompt "a cat in space" --style pixel
  genctl submit --subject nft-42 --prompt "a cat" --collaborator 0xdef --wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		subject, _ := flags.GetString("subject")
		prompt, _ := flags.GetString("prompt")
		style, _ := flags.GetString("style")
		collaborators, _ := flags.GetStringSlice("collaborator")
		wait, _ := flags.GetBool("wait")
		interval, _ := flags.GetDuration("poll-interval")
		timeout, _ := flags.GetDuration("timeout")

		if subject == "" {
			return fmt.Errorf("--subject is required")
		}
		if prompt == "" {
			return fmt.Errorf("--prompt is required")
		}
		requester, err := requesterID()
		if err != nil {
			return err
		}

		c := newClient()
		status, err := c.SubmitJob(cmd.Context(), dto.SubmitJobRequest{
			SubjectID:     subject,
			RequesterID:   requester,
			Prompt:        prompt,
			Style:         style,
			Collaborators: collaborators,
		})
		if err != nil {
			return fmt.Errorf("failed to submit job: %w", err)
		}

		cmd.Printf("%s✓ Job submitted%s\n", colorGreen, colorReset)
		cmd.Printf("  %sJob ID:%s %s\n", colorDim, colorReset, status.ID)
		cmd.Printf("  %sState:%s  %s\n", colorDim, colorReset, colorizeState(status.State))

		if !wait {
			cmd.Printf("\nCheck status with: genctl status %s\n", status.ID)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		final, err := c.WaitForJob(ctx, status.ID, interval)
		if err != nil {
			return fmt.Errorf("failed waiting for job %s: %w", status.ID, err)
		}
		cmd.Println()
		printStatus(cmd, final)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("subject", "", "subject (asset) id the media is generated for")
	submitCmd.Flags().String("prompt", "", "generation prompt")
	submitCmd.Flags().String("style", "", "optional style preset")
	submitCmd.Flags().StringSlice("collaborator", nil, "additional consumer notified on completion (repeatable)")
	submitCmd.Flags().Bool("wait", false, "poll until the job reaches a terminal state")
	submitCmd.Flags().Duration("poll-interval", 2*time.Second, "poll interval used with --wait")
	submitCmd.Flags().Duration("timeout", 10*time.Minute, "maximum time to wait with --wait")
}
