package meter

import (
	"math"
	"time"
)

// Rate converts a measurement window into kbit/s, rounded to two decimals.
// A zero or negative window yields 0 rather than a division fault; it means
// nothing measurable happened.
func Rate(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	kbps := float64(bytes) * 8 / elapsed.Seconds() / 1024
	return math.Round(kbps*100) / 100
}
