package humanize

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Duration renders d at a resolution readable in a run summary: sub-second
// durations keep millisecond precision, everything else rounds to the
// second.
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// Count pluralizes n of noun, e.g. Count(1, "file") == "1 file",
// Count(3, "file") == "3 files".
func Count(n int, noun string) string {
	return humanize.Comma(int64(n)) + " " + pluralize(n, noun)
}

// Bytes renders a byte count the way the pack's CLIs report file sizes.
func Bytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return noun
	}
	if len(noun) >= 2 && strings.HasSuffix(noun, "y") && !strings.ContainsAny(noun[len(noun)-2:len(noun)-1], "aeiou") {
		return noun[:len(noun)-1] + "ies"
	}
	return noun + "s"
}
