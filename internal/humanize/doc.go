// Package humanize formats durations and counts for CLI summaries and
// progress output, thinly wrapping dustin/go-humanize the way the
// example pack's CLIs report file sizes and elapsed time.
package humanize
