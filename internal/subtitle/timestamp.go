package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand         = decimal.NewFromInt(1000)
	secondsPerHour   = decimal.NewFromInt(3600)
	secondsPerMinute = decimal.NewFromInt(60)
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Hours are not wrapped at 24
// and milliseconds are truncated, so 1.9999 becomes 00:00:01,999.
//
// The float goes through its shortest decimal representation before
// truncation; 3661.234 is stored as 3661.23399999... but renders ,234.
func FormatTimestamp(seconds float64) (string, error) {
	if !validSeconds(seconds) {
		return "", fmt.Errorf("%w: timestamp %v", ErrInvalidArgument, seconds)
	}

	totalMillis := decimal.NewFromFloat(seconds).Shift(3).Floor()

	// split on the decimal so hours never overflow int64
	whole, millis := totalMillis.QuoRem(thousand, 0)
	hours, rest := whole.QuoRem(secondsPerHour, 0)
	minutes, secs := rest.QuoRem(secondsPerMinute, 0)

	h := hours.String()
	if len(h) < 2 {
		h = "0" + h
	}
	return fmt.Sprintf("%s:%02d:%02d,%03d",
		h, minutes.IntPart(), secs.IntPart(), millis.IntPart()), nil
}

// ParseTimestamp reads HH:MM:SS,mmm (or HH:MM:SS.mmm, or MM:SS.mmm) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	value = strings.ReplaceAll(value, ",", ".")
	clock, fraction, ok := strings.Cut(value, ".")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	fields := strings.Split(clock, ":")
	if len(fields) == 2 {
		fields = append([]string{"0"}, fields...)
	}
	if len(fields) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	hours, errH := strconv.Atoi(fields[0])
	minutes, errM := strconv.Atoi(fields[1])
	secs, errS := strconv.Atoi(fields[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if len(fraction) != 3 || hours < 0 || minutes < 0 || minutes > 59 ||
		secs < 0 || secs > 59 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	total := decimal.NewFromInt(int64(hours)*3600 + int64(minutes)*60 + int64(secs)).
		Add(decimal.New(int64(millis), -3))
	f, _ := total.Float64()
	return f, nil
}

func validSeconds(seconds float64) bool {
	return seconds >= 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}
