// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a billed cost value.
func FormatCost(cost float64) string {
	if cost >= 1000 {
		return "$" + FormatNumber(int64(math.Round(cost)))
	}
	if cost >= 100 {
		return fmt.Sprintf("$%.0f", cost)
	}
	if cost >= 10 {
		return fmt.Sprintf("$%.1f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

// FormatAmount formats a request amount. Whole amounts print without decimals.
// e.g., 12 -> "12", 12.5 -> "12.5", 1234.25 -> "1,234.3"
func FormatAmount(a float64) string {
	if a == math.Trunc(a) && math.Abs(a) < 1e15 {
		return FormatNumber(int64(a))
	}
	whole := int64(math.Trunc(a))
	frac := math.Abs(a - float64(whole))
	tenth := int64(math.Round(frac * 10))
	if tenth == 10 {
		if a < 0 {
			whole--
		} else {
			whole++
		}
		tenth = 0
	}
	sign := ""
	if a < 0 && whole == 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%d", sign, FormatNumber(whole), tenth)
}

// FormatLimit formats a quota limit; negative limits are unlimited.
func FormatLimit(limit float64) string {
	if limit < 0 {
		return "unlimited"
	}
	return FormatAmount(limit)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatUnix formats unix seconds in local time, or "never" for zero.
func FormatUnix(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}

// FormatDuration formats a duration compactly.
// e.g., 1h2m5s -> "1h 2m", 2m30s -> "2m 30s", 4.2s -> "4.2s"
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	hours := int64(d / time.Hour)
	mins := int64((d % time.Hour) / time.Minute)
	secs := int64((d % time.Minute) / time.Second)

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatAgo formats how long ago t was, relative to now.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
