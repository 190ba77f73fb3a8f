package ui

import (
	"fmt"
	"time"
)

// ShortID trims an identity for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// FormatSize formats bytes into human-readable format
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatClock renders a relay timestamp (Unix milliseconds) as local hh:mm.
func FormatClock(ms int64) string {
	return time.UnixMilli(ms).Local().Format("15:04")
}
