package cmd

import (
	"fmt"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read and acknowledge job notifications",
	Long:    `Manage the notifications created when your jobs (or jobs you collaborate on) finish.`,
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		consumer, err := requesterID()
		if err != nil {
			return err
		}

		resp, err := newClient().ListNotifications(cmd.Context(), consumer, dto.ListNotificationsRequest{
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}

		if len(resp.Notifications) == 0 {
			cmd.Println("No notifications")
			return nil
		}

		for _, n := range resp.Notifications {
			marker := colorCyan + "●" + colorReset
			if n.Read {
				marker = colorDim + "○" + colorReset
			}
			cmd.Printf("%s %s  job %s  %s\n", marker, n.ID, n.JobID, formatTimestamp(n.CreatedAt))
		}
		if resp.NextCursor != "" {
			cmd.Printf("\nMore results: genctl notifications list --cursor %s\n", resp.NextCursor)
		}
		return nil
	},
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the unread notification count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, err := requesterID()
		if err != nil {
			return err
		}

		count, err := newClient().UnreadCount(cmd.Context(), consumer)
		if err != nil {
			return fmt.Errorf("failed to count unread notifications: %w", err)
		}
		cmd.Printf("%d unread\n", count)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [notification_id]",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, err := requesterID()
		if err != nil {
			return err
		}

		if err := newClient().MarkRead(cmd.Context(), consumer, args[0]); err != nil {
			return fmt.Errorf("failed to mark notification read: %w", err)
		}
		cmd.Printf("%s✓%s Marked %s as read\n", colorGreen, colorReset, args[0])
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, err := requesterID()
		if err != nil {
			return err
		}

		marked, err := newClient().MarkAllRead(cmd.Context(), consumer)
		if err != nil {
			return fmt.Errorf("failed to mark notifications read: %w", err)
		}
		cmd.Printf("%s✓%s Marked %d notifications as read\n", colorGreen, colorReset, marked)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsUnreadCmd, notificationsReadCmd, notificationsReadAllCmd)

	notificationsListCmd.Flags().Int("limit", 0, "page size (server default when 0)")
	notificationsListCmd.Flags().String("cursor", "", "cursor returned by a previous page")
}
