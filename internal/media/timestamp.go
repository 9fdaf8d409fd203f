package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamps travel through reports as HH:MM:SS:MS display strings with a
// two-digit millisecond field, e.g. "00:01:23:50".

// ParseTimestamp converts an HH:MM:SS:MS display string to seconds.
func ParseTimestamp(ts string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS:MS", ts)
	}
	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return 0, fmt.Errorf("timestamp %q: bad field %q", ts, part)
		}
		values[i] = v
	}
	return float64(values[0])*3600 + float64(values[1])*60 + float64(values[2]) + float64(values[3])/1000, nil
}

// FormatTimestamp renders seconds as an HH:MM:SS:MS display string.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	secs := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, millis/10)
}
