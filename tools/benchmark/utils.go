// Package main provides helper functions for the backfill benchmark CLI
package main

import (
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
)

// formatDuration renders a duration at a precision that fits its size
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatRate formats a rate (items per second)
func formatRate(count int, duration time.Duration) string {
	if duration.Seconds() == 0 {
		return "N/A"
	}
	rate := float64(count) / duration.Seconds()
	return fmt.Sprintf("%.2f/s", rate)
}

// percentageString calculates and formats a percentage
func percentageString(part, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

// durationQuantile returns the q quantile of an ascending-sorted slice
func durationQuantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// statusLabel returns a display label for the workflow close status
func statusLabel(status enums.WorkflowExecutionStatus) string {
	switch status {
	case enums.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return "🟡 RUNNING"
	case enums.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "✅ COMPLETED"
	case enums.WORKFLOW_EXECUTION_STATUS_FAILED:
		return "❌ FAILED"
	case enums.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return "🚫 CANCELED"
	case enums.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "⛔ TERMINATED"
	case enums.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return "🔄 CONTINUED_AS_NEW"
	case enums.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return "⏱️ TIMED_OUT"
	default:
		return status.String()
	}
}
