package cmd

import (
	"fmt"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func stateIcon(state string) string {
	switch state {
	case "COMPLETED":
		return colorGreen + "✓" + colorReset
	case "FAILED":
		return colorRed + "✗" + colorReset
	case "PROCESSING":
		return colorYellow + "⏳" + colorReset
	case "PENDING":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeState(state string) string {
	switch state {
	case "COMPLETED":
		return stateIcon(state) + " " + colorGreen + state + colorReset
	case "FAILED":
		return stateIcon(state) + " " + colorRed + state + colorReset
	case "PROCESSING":
		return stateIcon(state) + " " + colorYellow + state + colorReset
	case "PENDING":
		return stateIcon(state) + " " + colorCyan + state + colorReset
	default:
		return state
	}
}

func printStatus(cmd *cobra.Command, status *dto.JobStatusResponse) {
	cmd.Printf("%s %sJob Details%s\n", stateIcon(status.State), colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, status.ID)
	cmd.Printf("%sState:%s     %s\n", colorDim, colorReset, colorizeState(status.State))
	if status.Artifact != "" {
		cmd.Printf("%sArtifact:%s  %s\n", colorDim, colorReset, status.Artifact)
	}
	if status.ErrorReason != "" {
		cmd.Printf("%sError:%s     %s%s%s\n", colorDim, colorReset, colorRed, status.ErrorReason, colorReset)
	}
	cmd.Printf("%sUpdated:%s   %s\n", colorDim, colorReset, formatTimestamp(status.UpdatedAt))
}

// formatTimestamp renders an RFC 3339 timestamp with its age
func formatTimestamp(value string) string {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Local().Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	case duration < time.Hour:
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
