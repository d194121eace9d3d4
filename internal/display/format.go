package display

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable binary size ("512 B", "1.5 KiB",
// "700 MiB").
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatBytesWithSign prefixes with + or - for delta display (e.g. "- 1.2 GiB").
func FormatBytesWithSign(bytes int64) string {
	sign := ""
	if bytes > 0 {
		sign = "+ "
	} else if bytes < 0 {
		sign = "- "
		bytes = -bytes
	}
	return sign + FormatBytes(bytes)
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatRatio renders an estimated savings fraction, or "n/a" when absent.
func FormatRatio(r *float64) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("~%.0f%%", *r*100)
}

// FormatSavings returns "saved X (Y%)" for a before/after pair.
func FormatSavings(before, after int64) string {
	saved := before - after
	if before <= 0 {
		return "saved " + FormatBytes(saved)
	}
	return fmt.Sprintf("saved %s (%.1f%%)", FormatBytes(saved), float64(saved)*100/float64(before))
}
