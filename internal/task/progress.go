package task

import "fmt"

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed renders a transfer rate in bytes per second.
func FormatSpeed(bps float64) string {
	switch {
	case bps >= 1<<30:
		return fmt.Sprintf("%.1f GiB/s", bps/(1<<30))
	case bps >= 1<<20:
		return fmt.Sprintf("%.1f MiB/s", bps/(1<<20))
	case bps >= 1<<10:
		return fmt.Sprintf("%.1f KiB/s", bps/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}

// FormatJobLine renders a single job's progress line, e.g.
//
//	↓ https://… 45.2% (12.3 MiB/27.1 MiB) 1.4 MiB/s [chunk 2/5]
func FormatJobLine(v View) string {
	arrow := "↓"
	if v.Kind == KindUpload {
		arrow = "↑"
	}
	line := fmt.Sprintf("%s %s %.1f%% (%s/%s) %s",
		arrow, v.Locator, float64(v.Rate)/10,
		FormatBytes(v.Transferred), FormatBytes(v.Total),
		FormatSpeed(v.Speed))
	if v.TotalItems > 1 {
		line += fmt.Sprintf(" [chunk %d/%d]", v.DoneItems, v.TotalItems)
	}
	return line
}

// FormatSummaryLine is the coalesced line shown when several jobs run at
// once.
func FormatSummaryLine(running, done int) string {
	return fmt.Sprintf("%d transfers running, %d finished", running, done)
}
